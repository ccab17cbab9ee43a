package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ormato version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("ormato", Version)
		return nil
	},
}
