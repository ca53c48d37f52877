// Command tasks manages the task list of a running tasklist server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"tasklist/internal/config"
	"tasklist/internal/models"
	"tasklist/pkg/logger"
)

func main() {
	config.LoadEnvFile(".env")
	logger.SetDefault(logger.New(os.Stderr, slog.LevelWarn))

	app := cli.NewApp()
	app.Name = "tasks"
	app.Usage = "list and edit tasks on a tasklist server"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "api",
			Value:  config.Get().APIURL,
			EnvVar: "TASKS_API_URL",
			Usage:  "server base URL",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list",
			Usage:  "print the task list",
			Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error { return nil }),
		},
		{
			Name:      "add",
			Usage:     "create a task",
			ArgsUsage: "<title>",
			Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
				if c.NArg() != 1 {
					return usageError(c)
				}
				return s.add(ctx, models.CreateTaskInput{Title: c.Args().First()})
			}),
		},
		{
			Name:      "edit",
			Usage:     "change the title of a task",
			ArgsUsage: "<id> <title>",
			Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
				if c.NArg() != 2 {
					return usageError(c)
				}
				id, err := parseID(c.Args().First())
				if err != nil {
					return err
				}
				return s.edit(id, c.Args().Get(1))
			}),
		},
		{
			Name:      "toggle",
			Usage:     "flip the completed flag of a task",
			ArgsUsage: "<id>",
			Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
				if c.NArg() != 1 {
					return usageError(c)
				}
				id, err := parseID(c.Args().First())
				if err != nil {
					return err
				}
				return s.toggle(id)
			}),
		},
		{
			Name:      "rm",
			Usage:     "delete a task",
			ArgsUsage: "<id>",
			Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
				if c.NArg() != 1 {
					return usageError(c)
				}
				id, err := parseID(c.Args().First())
				if err != nil {
					return err
				}
				return s.remove(id)
			}),
		},
		{
			Name:   "watch",
			Usage:  "print the list every time it changes on the server",
			Action: watch,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// withSession mounts a list view for one command, runs fn and prints the
// resulting list.
func withSession(fn func(ctx context.Context, s *session, c *cli.Context) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		ctx := context.Background()
		s, err := openSession(ctx, c.GlobalString("api"), nil)
		if err != nil {
			return err
		}
		runErr := fn(ctx, s, c)
		rows := s.close(ctx)
		render(os.Stdout, rows)
		return runErr
	}
}

func watch(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redraw := make(chan struct{}, 1)
	s, err := openSession(ctx, c.GlobalString("api"), func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer s.view.Unmount()

	go s.subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-redraw:
			fmt.Fprint(os.Stdout, "\033[H\033[2J")
			renderRows(os.Stdout, s.view.Rows())
		}
	}
}

func usageError(c *cli.Context) error {
	return cli.NewExitError(fmt.Sprintf("usage: tasks %s %s", c.Command.Name, c.Command.ArgsUsage), 2)
}
