package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// GlobalFlags holds the persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "javaward",
		Short: "Supervisor for long-running Java server processes",
		Long: "javaward launches Java servers detached from its own lifetime, " +
			"verifies their startup, buffers console output, re-attaches to " +
			"survivors after a restart and drives graceful stop escalation.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(
		createServeCommand(flags),
		createStatusCommand(flags),
		createVersionCommand(),
	)
	return root
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the javaward version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("javaward %s\n", version)
		},
	}
}
