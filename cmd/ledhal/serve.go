package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/ledhal/internal/app"
	"github.com/dokzlo13/ledhal/internal/config"
)

func newServeCmd(loadConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the light daemon",
		Long: `Runs the daemon: resets the RGB cluster, executes the optional Lua startup script ` +
			`and serves the HTTP API until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log.Info().Str("leds", cfg.LEDs.Base).Msg("Starting ledhal")

			application, err := app.New(cfg)
			if err != nil {
				return err
			}

			ctx := app.SignalContext()
			if err := application.Start(ctx); err != nil {
				_ = application.Stop()
				return err
			}

			application.Wait()

			if err := application.Stop(); err != nil {
				log.Error().Err(err).Msg("Error during shutdown")
			}
			return nil
		},
	}
}
