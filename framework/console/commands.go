package console

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ── serve ─────────────────────────────────────────────────────────────────────

type serveCmd struct{}

func (c *serveCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the application over HTTP on APP_PORT",
	}
}

func (c *serveCmd) run(cl *CLI, cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cl.app.Serve(ctx)
}

// ── services ──────────────────────────────────────────────────────────────────

type servicesCmd struct{}

func (c *servicesCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the services bound in the application container",
	}
}

func (c *servicesCmd) run(cl *CLI, cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SERVICE\tLIFECYCLE\tRESOLVED\n")
	for _, name := range cl.app.Names() {
		lc, _ := cl.app.Lifecycle(name)
		fmt.Fprintf(w, "%s\t%s\t%t\n", name, lc, cl.app.Resolved(name))
	}
	return w.Flush()
}

// ── routes ────────────────────────────────────────────────────────────────────

type routesCmd struct{}

func (c *routesCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the registered routes",
	}
}

func (c *routesCmd) run(cl *CLI, cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "METHOD\tPATTERN\tCONTROLLER\n")
	for _, r := range cl.app.Router().Routes() {
		controller := r.Controller
		if controller == "" {
			controller = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Method, r.Pattern, controller)
	}
	return w.Flush()
}

// ── call ──────────────────────────────────────────────────────────────────────

type callCmd struct{}

func (c *callCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "call <controller> [--key value ...]",
		Short: "Dispatch a CLI request to a controller",
		// flags belong to the request, not to cobra
		DisableFlagParsing: true,
	}
}

func (c *callCmd) run(cl *CLI, cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("a controller must be provided")
	}
	return cl.app.Call(args, cmd.OutOrStdout())
}
