package main

import (
	"github.com/mohammad-safakhou/carie/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Address = addr
			}
			asst, err := a.assistant(cmd.Context())
			if err != nil {
				return err
			}
			defer asst.Close()
			return server.New(asst, a.cfg.Server.JWTSecret).Run(cmd.Context(), a.cfg.Server.Address)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return cmd
}
