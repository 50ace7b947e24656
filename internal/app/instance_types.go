package app

import (
	"github.com/spf13/cobra"
)

var instanceTypesCmd = &cobra.Command{
	Use:     "instance-types",
	Aliases: []string{"types", "it"},
	Short:   "List the instance types described by the instance types document",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		types, err := loadInstanceTypes(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return WriteInstanceTypes(cmd.OutOrStdout(), types, cfg.Output)
	},
}
