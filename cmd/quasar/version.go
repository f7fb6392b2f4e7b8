package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of quasar",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("quasar version 0.1.0")
	},
}
