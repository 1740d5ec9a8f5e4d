package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiawesome/campus-live/pkg/names"
)

func init() {
	rootCmd.AddCommand(nameCmd)
}

var nameCmd = &cobra.Command{
	Use:   "name [account]",
	Short: "Print the generated fallback display name of an account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), names.Generate(args[0]))
	},
}
