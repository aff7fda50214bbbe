package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docsentinel/docsentinel/docsentinel"
	"github.com/docsentinel/docsentinel/internal/store"
)

var eventsStatusFlag string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the drift events currently on file",
	Long: `events lists the drift events currently on file, ordered by severity
then id, matching the order a fresh scan would emit them in.

Examples:
  docsentinel events
  docsentinel events --status pending
`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsStatusFlag, "status", "", "filter by status: pending, accepted, fixed, ignored")
}

func runEvents(cmd *cobra.Command, args []string) error {
	root, err := repoRoot()
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}

	session, err := docsentinel.Init(root)
	if err != nil {
		return err
	}
	defer session.Close()

	events, err := session.Events(store.EventStatus(eventsStatusFlag))
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("No events.")
		lastExitCode = 0
		return nil
	}

	worst := ""
	for _, e := range events {
		fmt.Printf("[%s] %-8s %-22s %s (confidence %.2f)\n", e.ID, e.Severity, e.Kind, e.Description, e.Confidence)
		if e.Status == store.EventPending && worst == "" {
			worst = e.Severity
		}
	}
	lastExitCode = severityExitCode(worst)
	return nil
}
