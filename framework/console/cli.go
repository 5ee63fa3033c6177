// Package console is the europa command line: it builds the application
// and serves it, lists what the container holds, or dispatches a single
// CLI request.
package console

import (
	"github.com/spf13/cobra"

	"github.com/km-arc/go-europa/framework/app"
)

// Setup registers the application's controllers, routes and providers.
type Setup func(a *app.Application) error

// CLI is the europa command tree.
type CLI struct {
	rootCmd *cobra.Command

	envFiles []string
	opts     []app.Option
	setup    Setup
	app      *app.Application
}

// New creates the command tree. The application is built before any
// subcommand runs, from the --env files and opts, then handed to setup.
func New(setup Setup, opts ...app.Option) *CLI {
	c := &CLI{setup: setup, opts: opts}

	c.rootCmd = &cobra.Command{
		Use:               "europa",
		Short:             "europa runs and inspects a Europa application",
		SilenceUsage:      true,
		PersistentPreRunE: c.build,
	}
	c.rootCmd.PersistentFlags().StringSliceVar(&c.envFiles, "env", nil, "env files to load (default .env)")

	c.addCmd(&serveCmd{})
	c.addCmd(&servicesCmd{})
	c.addCmd(&routesCmd{})
	c.addCmd(&callCmd{})

	return c
}

// Exec runs the command line in os.Args.
func (c *CLI) Exec() error {
	return c.rootCmd.Execute()
}

// Command returns the root command, for tests and embedding.
func (c *CLI) Command() *cobra.Command { return c.rootCmd }

// App returns the application built for the running command.
func (c *CLI) App() *app.Application { return c.app }

func (c *CLI) build(cmd *cobra.Command, args []string) error {
	opts := c.opts
	if len(c.envFiles) > 0 {
		opts = append(append([]app.Option(nil), opts...), app.WithEnvFiles(c.envFiles...))
	}
	a, err := app.New(opts...)
	if err != nil {
		return err
	}
	if c.setup != nil {
		if err := c.setup(a); err != nil {
			return err
		}
	}
	c.app = a
	return nil
}

func (c *CLI) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

type command interface {
	registerFlags() *cobra.Command
	run(cl *CLI, cmd *cobra.Command, args []string) error
}
