package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"apitester/internal/format"
	"apitester/internal/relay"
	"apitester/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		Long: `Run the relay server.

The relay performs HTTP requests on behalf of clients that cannot make them
directly and reports the result as JSON:

  POST /api/test/send   {url, method, headers?, body?}
  GET  /docs            API documentation
  GET  /                liveness check

Stop it with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = app.cfg.Server.Port
			}

			r := relay.New(
				relay.WithTimeout(app.cfg.Relay.Timeout),
				relay.WithLogger(app.log),
			)
			srv := server.New(r,
				server.WithHost(app.cfg.Server.Host),
				server.WithPort(port),
				server.WithLogger(app.log),
			)

			format.PrintSuccess(fmt.Sprintf("Relay listening on http://localhost:%d", port))
			format.PrintInfo(fmt.Sprintf("Docs at http://localhost:%d/docs", port))
			return srv.Start(cmd.Context())
		},
	}
	serveCmd.Flags().IntVarP(&port, "port", "p", server.DefaultPort, "Port to listen on")

	return serveCmd
}
