package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/example/taskboard/config"
	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/modules/api"
	"github.com/example/taskboard/modules/auth"
	"github.com/example/taskboard/modules/board"
	"github.com/example/taskboard/modules/router"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Task board client and development server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show framework and module logs")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

// withClient runs fn against a started client application.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *clientApp) error) error {
	cfg := config.Load()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := startClient(ctx, cfg, verbose, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	runErr := fn(ctx, c)

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := c.stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return runErr
}

func loginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				if err := requireView(c, router.RouteLogin, router.ViewLogin); err != nil {
					return err
				}
				store := c.session.Store()
				if err := store.Login(ctx, args[0], password); err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				store.Wait()

				landed, _ := c.guard(router.RouteLogin)
				printSession(cmd.OutOrStdout(), store.Snapshot())
				fmt.Fprintf(cmd.OutOrStdout(), "Home:     %s\n", landed)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				if err := requireView(c, router.RouteRegister, router.ViewRegister); err != nil {
					return err
				}
				store := c.session.Store()
				if err := store.Register(ctx, args[0], email, password); err != nil {
					return fmt.Errorf("registration failed: %w", err)
				}
				store.Wait()

				printSession(cmd.OutOrStdout(), store.Snapshot())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(_ context.Context, c *clientApp) error {
				c.session.Store().Logout()
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(_ context.Context, c *clientApp) error {
				landed, d := c.guard(router.RouteRoot)
				printSession(cmd.OutOrStdout(), c.session.Store().Snapshot())
				fmt.Fprintf(cmd.OutOrStdout(), "Home:     %s (%s)\n", landed, describeView(d.View))
				return nil
			})
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List every user (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				if err := requireView(c, router.RouteAdminDashboard, router.ViewAdminDashboard); err != nil {
					return err
				}
				users, err := c.session.Store().FetchDirectory(ctx)
				if err != nil {
					return err
				}
				printUsers(cmd.OutOrStdout(), users)
				return nil
			})
		},
	}
}

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with tasks",
	}

	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksShowCmd())
	cmd.AddCommand(tasksCreateCmd())
	cmd.AddCommand(tasksEditCmd())
	cmd.AddCommand(tasksDeleteCmd())
	cmd.AddCommand(tasksCompleteCmd())
	return cmd
}

func tasksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show your dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				out := cmd.OutOrStdout()
				landed, d := c.guard(router.RouteRoot)

				switch d.View {
				case router.ViewAdminDashboard:
					dash, err := loadAdminDashboard(ctx, c)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Admin dashboard: %d tasks, %d users\n\n", len(dash.Tasks), len(dash.Users))
					printTasks(out, dash.Tasks, nil)
				case router.ViewUserDashboard:
					tasks, err := c.tasks.Store().FetchAll(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, "Your tasks (* marks assignees who completed)")
					fmt.Fprintln(out)
					printTasks(out, tasks, c.tasks.Store().Snapshot().IsPending)
				default:
					return fmt.Errorf("no dashboard at %s (%s)", landed, describeView(d.View))
				}
				return nil
			})
		},
	}
}

func tasksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				if _, d := c.guard(router.RouteRoot); !d.Terminal() || d.View == router.ViewLogin {
					return errors.New("log in first")
				}
				t, err := c.tasks.Store().FetchOne(ctx, args[0])
				if err != nil {
					return err
				}
				printTask(cmd.OutOrStdout(), *t)
				return nil
			})
		},
	}
}

// taskForm holds the flags shared by create and edit.
type taskForm struct {
	title       string
	description string
	assignees   []string
}

func (f *taskForm) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Task title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Task description")
	cmd.Flags().StringSliceVarP(&f.assignees, "assignee", "a", nil, "Assignee username or id (repeatable)")
}

// draft builds the form draft, resolving assignees through the directory.
func (f *taskForm) draft(ctx context.Context, c *clientApp) (task.Draft, error) {
	d := task.Draft{Title: f.title, Description: f.description}
	if len(f.assignees) == 0 {
		return d, d.Validate()
	}

	users, err := c.session.Store().FetchDirectory(ctx)
	if err != nil {
		return task.Draft{}, err
	}
	ids, err := resolveAssignees(f.assignees, users)
	if err != nil {
		return task.Draft{}, err
	}
	d.Assignees = ids
	return d, d.Validate()
}

func tasksCreateCmd() *cobra.Command {
	var form taskForm

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				if err := requireView(c, router.RouteAdminDashboard, router.ViewAdminDashboard); err != nil {
					return err
				}
				draft, err := form.draft(ctx, c)
				if err != nil {
					return err
				}
				spec, err := task.BuildSpec(nil, draft)
				if err != nil {
					return err
				}
				created, err := c.tasks.Store().Create(ctx, spec)
				if err != nil {
					return err
				}
				printTask(cmd.OutOrStdout(), *created)
				return nil
			})
		},
	}

	form.bind(cmd)
	return cmd
}

func tasksEditCmd() *cobra.Command {
	var form taskForm

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task (admin)",
		Long: `Replace the title, description and assignees of a task.
Omitted fields keep their current value. Assignees who stay on the task
keep their completion.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				if err := requireView(c, router.RouteAdminDashboard, router.ViewAdminDashboard); err != nil {
					return err
				}
				store := c.tasks.Store()
				if _, err := store.FetchAll(ctx); err != nil {
					return err
				}
				current, ok := store.Snapshot().Find(args[0])
				if !ok {
					return fmt.Errorf("task %s not found", args[0])
				}

				if form.title == "" {
					form.title = current.Title
				}
				if form.description == "" {
					form.description = current.Description
				}
				if !cmd.Flags().Changed("assignee") {
					form.assignees = current.AssigneeIDs()
				}

				draft, err := form.draft(ctx, c)
				if err != nil {
					return err
				}
				updated, err := store.Edit(ctx, args[0], draft)
				if err != nil {
					return err
				}
				printTask(cmd.OutOrStdout(), *updated)
				return nil
			})
		},
	}

	form.bind(cmd)
	return cmd
}

func tasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				if err := requireView(c, router.RouteAdminDashboard, router.ViewAdminDashboard); err != nil {
					return err
				}
				return c.tasks.Store().Delete(ctx, args[0])
			})
		},
	}
}

func tasksCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task as completed for yourself",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *clientApp) error {
				if err := requireView(c, router.RouteUserDashboard, router.ViewUserDashboard); err != nil {
					return err
				}
				store := c.tasks.Store()
				if _, err := store.FetchAll(ctx); err != nil {
					return err
				}
				completed, err := store.CompleteSelf(ctx, args[0])
				if err != nil {
					return err
				}
				printTask(cmd.OutOrStdout(), *completed)
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the development API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(config.Load())
		},
	}
}

func serve(cfg config.Config) error {
	log.Println("=== Task Board Development API ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithNATSPort(cfg.Dev.NATSPort),
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Order: independent modules first, then dependent modules
	app.Register(auth.NewModule(cfg.Dev))  // provides account and token services
	app.Register(board.NewModule(cfg.Dev)) // provides task services
	app.Register(api.NewModule(cfg.Dev))   // depends on auth and board

	if err := app.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	printStartupInfo(cfg.Dev)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}

func printStartupInfo(cfg config.DevServer) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (%s):", cfg.Addr)
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/auth/register            - Register a new user")
	log.Println("  POST   /api/auth/login               - Login and get a token")
	log.Println("  GET    /health                       - Health check")
	log.Println("")
	log.Println("  Authenticated Endpoints (Bearer token):")
	log.Println("  GET    /api/auth/:id                 - Get a user (self, or any as admin)")
	log.Println("  GET    /api/tasks                    - List visible tasks")
	log.Println("  GET    /api/tasks/:id                - Get a task")
	log.Println("  PATCH  /api/tasks/:id/complete       - Complete your assignment")
	log.Println("")
	log.Println("  Admin Endpoints:")
	log.Println("  GET    /api/admin/fetchallusers      - List users")
	log.Println("  POST   /api/admin/tasks              - Create a task")
	log.Println("  PATCH  /api/admin/tasks/:id          - Update a task")
	log.Println("  DELETE /api/admin/tasks/:id          - Delete a task")
	log.Println("")
	log.Printf("Seeded admin account: %s", cfg.AdminUsername)
	log.Println("Press Ctrl+C to shutdown gracefully")
}
