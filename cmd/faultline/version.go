package main

import (
	"fmt"

	"github.com/aretw0/faultline"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of faultline",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "faultline version %s\n", faultline.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
