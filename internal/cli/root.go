package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docsentinel",
	Short: "docsentinel detects semantic drift between source code and documentation",
	Long: `docsentinel watches a repository's code and docs and flags places where
they have drifted apart: a changed function signature a doc still shows the
old shape of, a removed symbol a doc still references, a doc section whose
embedding has wandered far from the code it describes.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main() exactly once. The returned
// exit code maps to the worst pending event severity found during the run,
// per the external interface's exit-code contract.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 3
	}
	return lastExitCode
}

// lastExitCode is set by commands that need to report a severity-derived
// exit code (scan, events) rather than a plain success/failure.
var lastExitCode int

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "repo", "", "repository root (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("repo", rootCmd.PersistentFlags().Lookup("repo"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	viper.SetEnvPrefix("DOCSENTINEL")
	viper.AutomaticEnv()
}

// repoRoot resolves the --repo flag to an absolute path, defaulting to the
// current working directory.
func repoRoot() (string, error) {
	if cfgFile != "" {
		return filepath.Abs(cfgFile)
	}
	return os.Getwd()
}

// severityExitCode maps a worst-pending-event severity to the CLI's exit
// code contract: 0 no pending high-or-above events, 1 pending high, 2
// pending critical. 3 is reserved for the fatal configuration/store errors
// Execute returns directly and is never produced here.
func severityExitCode(severity string) int {
	switch severity {
	case "critical":
		return 2
	case "high":
		return 1
	default:
		return 0
	}
}
