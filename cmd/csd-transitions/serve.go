package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/csd-transitions/internal/detection"
	"github.com/ironsheep/csd-transitions/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Run the Model Context Protocol server. Requests are read line by line
from stdin and responses written to stdout; logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.log.WithField("version", Version).Info("csd-transitions MCP server starting")

			srv := server.New(a.cfg,
				server.WithLogger(a.log),
				server.WithVersion(Version),
				server.WithMetrics(a.registry),
				server.WithExtractor(detection.NewHough(a.cfg.MinLineLength)),
				server.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
			)
			if err := srv.Run(cmd.Context()); err != nil {
				a.log.WithError(err).Error("server error")
				return err
			}
			return nil
		},
	}
}
