package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of note-export",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("note-export %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
