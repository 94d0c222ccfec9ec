package cmd

import (
	"fmt"

	"github.com/brogergvhs/noveld/internal/config"

	"github.com/spf13/cobra"
)

var flagAddSwitch bool

var configAddCmd = &cobra.Command{
	Use:   "add <label>",
	Short: "Create a new config profile with default values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]

		path, err := config.CreateEmptyConfig(label)
		if err != nil {
			return err
		}
		fmt.Println("Created:", path)

		if flagAddSwitch {
			if err := config.SwitchConfig(label); err != nil {
				return err
			}
			fmt.Println("Switched to:", label)
		}
		return nil
	},
}

func init() {
	configAddCmd.Flags().BoolVar(&flagAddSwitch, "switch", false, "activate the new config immediately")
	configCmd.AddCommand(configAddCmd)
}
