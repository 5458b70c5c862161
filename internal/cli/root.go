// Package cli implements the modelyaml command tree.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// errReported marks failures whose details were already printed.
var errReported = errors.New("reported")

// Execute runs the command line and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := buildRootCmdWith(newSettings(stdout, stderr))
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

// buildRootCmdWith constructs the cobra command tree bound to s.
func buildRootCmdWith(s *settings) *cobra.Command {
	root := &cobra.Command{
		Use:           "modelyaml",
		Short:         "Resolve virtual model definitions into runnable configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	pf.StringVar(&s.envFile, "env-file", ".env", "Optional .env file loaded before reading MODELYAML_* variables")
	pf.StringVar(&s.definitionsDir, "definitions-dir", "", "Directory of model definition files (defaults MODELYAML_DEFINITIONS_DIR or ~/.modelyaml/models)")
	pf.StringVar(&s.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults MODELYAML_LOG_LEVEL or info)")
	pf.StringVar(&s.logFormat, "log-format", "", "Log format: console|json")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return s.init(cmd)
	}

	root.AddCommand(
		newServeCmd(s),
		newResolveCmd(s),
		newValidateCmd(s),
		newListCmd(s),
	)

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(s.out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(s.out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(s.out, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(s.out) }})
	root.AddCommand(completionCmd)

	return root
}
