package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speedy-lang/sweep/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sweep version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sweep %s\n", config.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
