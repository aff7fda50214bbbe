package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docsentinel/docsentinel/docsentinel"
	"github.com/docsentinel/docsentinel/internal/walker"
)

var (
	scanModeFlag  string
	scanFromFlag  string
	scanToFlag    string
	scanQuietFlag bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the repository for semantic drift between code and docs",
	Long: `scan walks a commit range (or the uncommitted working tree), re-extracts
the code and documentation chunks it touches, and evaluates the drift rules
against what changed.

Examples:
  # Scan everything since the last recorded scan
  docsentinel scan

  # Scan the working tree, including uncommitted edits
  docsentinel scan --mode uncommitted

  # Scan one explicit commit range
  docsentinel scan --mode range --from HEAD~5 --to HEAD

  # Index a repository for the first time
  docsentinel scan --mode full
`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanModeFlag, "mode", "range", "scan mode: range, full, or uncommitted")
	scanCmd.Flags().StringVar(&scanFromFlag, "from", "", "range mode: starting commit-ish (defaults to the last scan)")
	scanCmd.Flags().StringVar(&scanToFlag, "to", "", "range/full mode: ending commit-ish (defaults to HEAD)")
	scanCmd.Flags().BoolVarP(&scanQuietFlag, "quiet", "q", false, "disable the progress bar")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted! Cancelling scan...")
		cancel()
	}()

	root, err := repoRoot()
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}

	session, err := docsentinel.Init(root)
	if err != nil {
		return err
	}
	defer session.Close()

	req := walker.Request{Mode: walker.Mode(scanModeFlag), From: scanFromFlag, To: scanToFlag}
	reporter := newScanProgressReporter(scanQuietFlag)

	scan, diags, err := session.Scan(ctx, req, docsentinel.ScanOptions{Progress: reporter.fn()})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if !scanQuietFlag {
		fmt.Printf("Scan %s complete: %d events (%s -> %s)\n", scan.ID, scan.EventCount, scan.FromRev, scan.ToRev)
		for _, w := range diags.ExtractWarns {
			fmt.Printf("  warning: %s: %v\n", w.Path, w.Err)
		}
		if diags.HasEmbedFailures() {
			fmt.Println("  warning: embedding provider failed at least once; similarity-based rules may be incomplete")
		}
	}

	severity, err := session.WorstPendingSeverity()
	if err != nil {
		return err
	}
	lastExitCode = severityExitCode(severity)
	return nil
}
