package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docsentinel/docsentinel/docsentinel"
)

var (
	ignoreReason    string
	ignorePermanent bool
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore <event-id>",
	Short: "Mark a drift event as ignored",
	Long: `ignore suppresses a drift event. By default the suppression is scoped to
the revision the event was last seen at; pass --permanent to suppress it
across every future scan regardless of revision.`,
	Args: cobra.ExactArgs(1),
	RunE: runIgnore,
}

func init() {
	rootCmd.AddCommand(ignoreCmd)
	ignoreCmd.Flags().StringVar(&ignoreReason, "reason", "", "why this event is being ignored")
	ignoreCmd.Flags().BoolVar(&ignorePermanent, "permanent", false, "suppress this event across every future scan")
}

func runIgnore(cmd *cobra.Command, args []string) error {
	root, err := repoRoot()
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}

	session, err := docsentinel.Init(root)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.IgnoreEvent(args[0], ignoreReason, ignorePermanent); err != nil {
		return err
	}

	fmt.Printf("Ignored event %s\n", args[0])
	return nil
}
