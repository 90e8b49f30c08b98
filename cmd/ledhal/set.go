package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/ledhal/internal/app"
	"github.com/dokzlo13/ledhal/internal/arbiter"
	"github.com/dokzlo13/ledhal/internal/config"
	"github.com/dokzlo13/ledhal/internal/endpoint"
	"github.com/dokzlo13/ledhal/internal/lights"
)

// stateFlags are the flags shared by commands that take a light state.
type stateFlags struct {
	flash string
	onMS  int
	offMS int
}

func (f *stateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.flash, "flash", "none", "Flash mode (none, timed, hardware)")
	cmd.Flags().IntVar(&f.onMS, "on-ms", 0, "Blink on time in milliseconds (timed mode)")
	cmd.Flags().IntVar(&f.offMS, "off-ms", 0, "Blink off time in milliseconds (timed mode)")
}

func (f *stateFlags) state(color string) (lights.State, error) {
	c, err := lights.ParseColor(color)
	if err != nil {
		return lights.State{}, err
	}
	mode, err := lights.ParseFlashMode(f.flash)
	if err != nil {
		return lights.State{}, err
	}
	if f.onMS < 0 || f.offMS < 0 {
		return lights.State{}, &lights.Error{Kind: lights.InvalidArgument, Op: "parse state", Err: fmt.Errorf("negative flash duration")}
	}
	return lights.State{Color: c, FlashMode: mode, FlashOnMS: f.onMS, FlashOffMS: f.offMS}, nil
}

func newSetCmd(loadConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	var flags stateFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "set <light> <color>",
		Short: "Apply one light state and exit",
		Long: `Opens the named light (backlight, buttons, battery, notifications, attention) and applies ` +
			`the color once. Other indicators are assumed off, so a cluster light set here replaces ` +
			`whatever the RGB LEDs showed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			state, err := flags.state(args[1])
			if err != nil {
				return err
			}

			var w endpoint.Writer = endpoint.NewSysfs()
			rec := endpoint.NewRecorder()
			if dryRun {
				w = rec
			}

			a := arbiter.New(w, app.LayoutFromConfig(cfg))
			dev, err := a.Open(args[0])
			if err != nil {
				return err
			}
			defer dev.Close()

			err = dev.Set(state)
			if dryRun {
				for _, wr := range rec.Writes() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s <- %s\n", wr.Path, wr.Value)
				}
			}
			if err != nil {
				return fmt.Errorf("set %s (code %d): %w", args[0], lights.Code(err), err)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the endpoint writes instead of performing them")
	return cmd
}
