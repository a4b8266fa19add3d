package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "taskctl drives a task tree through an LLM agent workflow",
	Long:  `taskctl loads a YAML run configuration (task templates and workflow wiring) and drives a task to completion, optionally orchestrating sub-tasks along the way.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "taskctl.yaml", "Path to the run configuration file")
}
