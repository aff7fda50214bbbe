package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docsentinel/docsentinel/docsentinel"
)

var (
	acceptFixFile   string
	acceptFixCommit bool
)

var acceptFixCmd = &cobra.Command{
	Use:   "accept-fix <event-id>",
	Short: "Apply an event's suggested fix (or supplied content) to its related doc chunk",
	Args:  cobra.ExactArgs(1),
	RunE:  runAcceptFix,
}

func init() {
	rootCmd.AddCommand(acceptFixCmd)
	acceptFixCmd.Flags().StringVar(&acceptFixFile, "content-file", "", "path to a file containing the replacement text (required)")
	acceptFixCmd.Flags().BoolVar(&acceptFixCommit, "commit", false, "commit the rewritten file with git")
	acceptFixCmd.MarkFlagRequired("content-file")
}

func runAcceptFix(cmd *cobra.Command, args []string) error {
	root, err := repoRoot()
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}

	content, err := os.ReadFile(acceptFixFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", acceptFixFile, err)
	}

	session, err := docsentinel.Init(root)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.AcceptFix(args[0], string(content), acceptFixCommit); err != nil {
		return err
	}

	fmt.Printf("Applied fix for event %s\n", args[0])
	return nil
}
