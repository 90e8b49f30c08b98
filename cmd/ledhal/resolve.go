package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/ledhal/internal/lights"
	"github.com/dokzlo13/ledhal/internal/speaker"
)

func newResolveCmd() *cobra.Command {
	var flags stateFlags

	cmd := &cobra.Command{
		Use:   "resolve <color>",
		Short: "Show how a color maps to the LEDs without touching hardware",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := flags.state(args[0])
			if err != nil {
				return err
			}
			out := speaker.Resolve(state)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "color:      %s (lit=%t)\n", lights.FormatColor(state.Color), lights.IsLit(state))
			fmt.Fprintf(w, "brightness: %d\n", lights.Brightness(state))
			fmt.Fprintf(w, "red:        %t\n", out.Red)
			fmt.Fprintf(w, "green:      %t\n", out.GreenDriven())
			fmt.Fprintf(w, "blue:       %t\n", out.Blue)
			if out.Blinking {
				fmt.Fprintf(w, "blink:      %dms on / %dms off\n", out.OnMS, out.OffMS)
			} else {
				fmt.Fprintln(w, "blink:      no")
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
