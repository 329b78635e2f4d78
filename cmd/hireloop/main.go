package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "hireloop",
	Short:   "Candidate evaluation engine for interview and resume scoring",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
