package main

import (
	"encoding/json"

	"github.com/mohammad-safakhou/newshub/config"
	"github.com/mohammad-safakhou/newshub/internal/refresh"
	srv "github.com/mohammad-safakhou/newshub/internal/server"
	"github.com/spf13/cobra"
)

func refreshCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			app, err := srv.NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			rep := app.Job.Run(cmd.Context(), refresh.TriggerManual)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
}
