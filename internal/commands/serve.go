package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/app"
	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

func newServeCmd(e *env) *cobra.Command {
	var (
		port int
		edit bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the roster over HTTP",
		Long: `Start the HTTP server. In serve mode (default) the API is read-only;
with --edit the mutating endpoints are enabled.`,
		Args: cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("edit") {
				e.cfg.Server.EditMode = edit
			}

			srv := app.NewServer(r, app.Options{
				EditMode:  e.cfg.Server.EditMode,
				Calendar:  e.cfg.Calendar,
				Logger:    e.logger,
				Static:    e.assets.Static,
				IndexHTML: e.assets.Index,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e.logger.Info("data location", "backend", e.cfg.Storage.Backend, "data_dir", e.cfg.Storage.DataDir)
			return srv.ListenAndServe(ctx, e.cfg.Server.Port)
		}),
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().BoolVar(&edit, "edit", false, "enable edit mode")
	return cmd
}
