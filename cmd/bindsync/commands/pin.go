package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ohmree/bindsync/config"
)

// PinCmd groups pin file operations.
var PinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Show or update the pinned source revision",
	Long: `Manage the pin file that records the exact native source revision and
release version the bindings are generated from.

Bumping the pin is the normal way to start a regeneration: under watch
mode the change triggers a run automatically.

Examples:
  bindsync pin show
  bindsync pin set 4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2a3b 0.11.22`,
}

var pinShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current pin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		pin, err := config.LoadPin(cfg.Source.PinFile)
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			out, err := json.MarshalIndent(pin, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		pterm.Info.Printf("Revision: %s\n", pin.Revision)
		pterm.Info.Printf("Version:  %s\n", pin.Version)
		return nil
	},
}

var pinSetCmd = &cobra.Command{
	Use:   "set <revision> <version>",
	Short: "Update the pin to a new revision and version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		pin := &config.Pin{Revision: args[0], Version: args[1]}
		if err := pin.Validate(); err != nil {
			return err
		}

		if err := config.SavePin(cfg.Source.PinFile, pin); err != nil {
			return err
		}

		pterm.Success.Printf("Pinned %s at %s\n", pin.Version, pin.Revision)
		return nil
	},
}

func init() {
	PinCmd.AddCommand(pinShowCmd)
	PinCmd.AddCommand(pinSetCmd)
}
