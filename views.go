package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/modules/notification"
	"github.com/example/taskboard/modules/router"
	"github.com/example/taskboard/modules/session"
	"golang.org/x/sync/errgroup"
)

// adminDashboard is what the admin view shows: every task and the directory
// used to pick assignees.
type adminDashboard struct {
	Tasks []task.Task
	Users []user.User
}

// loadAdminDashboard fetches tasks and the directory side by side. A failed
// directory fetch leaves the task listing usable.
func loadAdminDashboard(ctx context.Context, c *clientApp) (adminDashboard, error) {
	var (
		d      adminDashboard
		dirErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := c.tasks.Store().FetchAll(gctx)
		d.Tasks = tasks
		return err
	})
	g.Go(func() error {
		users, err := c.session.Store().FetchDirectory(gctx)
		d.Users, dirErr = users, err
		return nil
	})
	if err := g.Wait(); err != nil {
		return adminDashboard{}, err
	}
	if dirErr != nil {
		d.Users = c.session.Store().Snapshot().Users
	}
	return d, nil
}

// requireView navigates to route and fails unless the guard renders want.
func requireView(c *clientApp, route router.Route, want router.View) error {
	landed, d := c.guard(route)
	if d.Suspended {
		return fmt.Errorf("session is still loading; try again")
	}
	if d.View != want {
		return fmt.Errorf("%s is not available here; you were sent to %s (%s)", route, landed, describeView(d.View))
	}
	return nil
}

func describeView(v router.View) string {
	switch v {
	case router.ViewLogin:
		return "log in with `taskboard login`"
	case router.ViewRegister:
		return "register with `taskboard register`"
	case router.ViewUserDashboard:
		return "user dashboard"
	case router.ViewAdminDashboard:
		return "admin dashboard"
	case router.ViewNotFound:
		return "not found"
	default:
		return "nothing to show"
	}
}

func printNotice(w io.Writer, n notification.Notice) {
	mark := "ok"
	if n.Level == notification.LevelError {
		mark = "!!"
	}
	fmt.Fprintf(w, "[%s] %s\n", mark, n.Message)
}

func printSession(w io.Writer, st session.State) {
	fmt.Fprintf(w, "Status:   %s\n", st.Status())
	if st.Identity != nil {
		fmt.Fprintf(w, "User:     %s <%s>\n", st.Identity.Username, st.Identity.Email)
		fmt.Fprintf(w, "ID:       %s\n", st.Identity.ID)
	}
	if st.Role != "" {
		fmt.Fprintf(w, "Role:     %s\n", st.Role)
	}
	if st.Err != nil {
		fmt.Fprintf(w, "Error:    %v\n", st.Err)
	}
}

func printUsers(w io.Writer, users []user.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role)
	}
	tw.Flush()
}

func printTasks(w io.Writer, tasks []task.Task, pending func(string) bool) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tASSIGNED TO")
	for _, t := range tasks {
		status := string(t.Status)
		if pending != nil && pending(t.ID) {
			status += " (saving)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Title, status, assignees(t))
	}
	tw.Flush()
}

func printTask(w io.Writer, t task.Task) {
	fmt.Fprintf(w, "ID:          %s\n", t.ID)
	fmt.Fprintf(w, "Title:       %s\n", t.Title)
	fmt.Fprintf(w, "Description: %s\n", t.Description)
	fmt.Fprintf(w, "Status:      %s\n", t.Status)
	if len(t.AssignedTo) == 0 {
		fmt.Fprintln(w, "Assigned to: nobody")
		return
	}
	fmt.Fprintln(w, "Assigned to:")
	for _, a := range t.AssignedTo {
		state := "pending"
		if a.Completed {
			state = "completed"
		}
		fmt.Fprintf(w, "  - %s (%s)\n", displayName(a.User), state)
	}
}

// assignees renders the assignee list, marking those who completed.
func assignees(t task.Task) string {
	names := make([]string, 0, len(t.AssignedTo))
	for _, a := range t.AssignedTo {
		name := displayName(a.User)
		if a.Completed {
			name += "*"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func displayName(u user.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}

// resolveAssignees maps usernames or ids to user ids through the directory.
func resolveAssignees(names []string, directory []user.User) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := lookupUser(name, directory)
		if !ok {
			return nil, fmt.Errorf("unknown user %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func lookupUser(name string, directory []user.User) (string, bool) {
	for _, u := range directory {
		if u.ID == name || strings.EqualFold(u.Username, name) {
			return u.ID, true
		}
	}
	return "", false
}
