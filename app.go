package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/example/taskboard/config"
	"github.com/example/taskboard/modules/notification"
	"github.com/example/taskboard/modules/router"
	"github.com/example/taskboard/modules/session"
	"github.com/example/taskboard/modules/tasks"
	"github.com/go-monolith/mono"
)

// noticeQuiet is how long the CLI waits for late notices before exiting.
const noticeQuiet = 150 * time.Millisecond

// clientApp is the client side of the board: the stores, the guard and the
// notices, assembled as one mono application.
type clientApp struct {
	stopApp      func(context.Context) error
	session      *session.SessionModule
	tasks        *tasks.TasksModule
	router       *router.RouterModule
	notification *notification.NotificationModule
	notices      chan notification.Notice
	out          io.Writer
}

// natsOptions listens on port when it is set. Otherwise the embedded bus is
// reachable only in-process, so CLI runs never contend for a TCP port.
func natsOptions(port int) []mono.MonoFrameworkOption {
	if port > 0 {
		return []mono.MonoFrameworkOption{mono.WithNATSPort(port)}
	}
	return []mono.MonoFrameworkOption{
		mono.WithNATSDontListen(),
		mono.WithNATSInProcessConn(),
	}
}

// startClient builds and starts the client application and waits for the
// restored session to settle.
func startClient(ctx context.Context, cfg config.Config, verbose bool, out io.Writer) (*clientApp, error) {
	level := mono.LogLevelError
	if verbose {
		level = mono.LogLevelInfo
	} else {
		log.SetOutput(io.Discard)
	}

	opts := append([]mono.MonoFrameworkOption{
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(level),
		mono.WithLogFormat(mono.LogFormatText),
	}, natsOptions(cfg.NATSPort)...)

	app, err := mono.NewMonoApplication(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	c := &clientApp{
		stopApp:      app.Stop,
		session:      session.NewModule(cfg),
		tasks:        tasks.NewModule(cfg),
		router:       router.NewModule(),
		notification: notification.NewModule(notification.DefaultCapacity),
		notices:      make(chan notification.Notice, notification.DefaultCapacity),
		out:          out,
	}
	c.notification.Subscribe(func(n notification.Notice) {
		select {
		case c.notices <- n:
		default:
		}
	})

	// Order: independent modules first, then dependent modules
	app.Register(c.session)
	app.Register(c.tasks)
	app.Register(c.router)
	app.Register(c.notification)

	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start application: %w", err)
	}

	c.session.Store().Wait()
	return c, nil
}

// stop prints the notices that arrived while the command ran and shuts the
// application down.
func (c *clientApp) stop(ctx context.Context) error {
	c.flushNotices(noticeQuiet)
	return c.stopApp(ctx)
}

// flushNotices prints notices until none has arrived for quiet.
func (c *clientApp) flushNotices(quiet time.Duration) {
	timer := time.NewTimer(quiet)
	defer timer.Stop()

	for {
		select {
		case n := <-c.notices:
			printNotice(c.out, n)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(quiet)
		case <-timer.C:
			return
		}
	}
}

// guard resolves route under the current session and records it as the
// current location.
func (c *clientApp) guard(route router.Route) (router.Route, router.Decision) {
	c.router.Observe(router.InputFrom(c.session.Store().Snapshot()))
	return c.router.Visit(route)
}
