package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/ledhal/internal/config"
	"github.com/dokzlo13/ledhal/internal/db"
	"github.com/dokzlo13/ledhal/internal/ledger"
	"github.com/dokzlo13/ledhal/internal/lights"
)

func newHistoryCmd(loadConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [light]",
		Short: "Print recently applied light updates, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Path == "" {
				return errors.New("history is disabled: database.path is not set")
			}

			var ind lights.Indicator
			if len(args) == 1 {
				if ind, err = lights.ParseIndicator(args[0]); err != nil {
					return err
				}
			}

			database, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			entries, err := ledger.New(database.DB).Recent(ind, limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			w := cmd.OutOrStdout()
			for _, e := range entries {
				source := e.Source
				if source == "" {
					source = "-"
				}
				fmt.Fprintf(w, "%s  #%-6d %-14s %-13s %s %s",
					e.Timestamp.Local().Format("2006-01-02 15:04:05.000"), e.Seq, source,
					e.Indicator, lights.FormatColor(e.State.Color), e.State.FlashMode)
				if e.Owner != "" {
					fmt.Fprintf(w, " owner=%s", e.Owner)
				}
				if e.Error != "" {
					fmt.Fprintf(w, " error=%q", e.Error)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to print")
	return cmd
}
