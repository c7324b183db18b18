package cli

import (
	"github.com/spf13/cobra"

	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MoneyManager page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := root.advisor(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				config.ApplyOptions(cfg, config.SetAddr(addr))
			}

			srv, err := server.New(a, cfg.GetLogger())
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context(), cfg.App.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides MONEYMANAGER_ADDR, default :8080)")
	return cmd
}
