package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docsentinel/docsentinel/docsentinel"
)

var (
	analyzeDocsFlag       bool
	analyzeSimilarityFlag bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <target>",
	Short: "Inspect one symbol or path's current drift-relevant state",
	Long: `analyze matches target (a path substring or qualified name substring)
against the currently known code chunks, without running a scan. Use
--docs to list the documentation that mentions each match, and --similarity
to list each match's nearest neighbors in the embedding index.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeDocsFlag, "docs", false, "include documentation mentions")
	analyzeCmd.Flags().BoolVar(&analyzeSimilarityFlag, "similarity", false, "include nearest-neighbor similarity")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root, err := repoRoot()
	if err != nil {
		return fmt.Errorf("resolving repository root: %w", err)
	}

	session, err := docsentinel.Init(root)
	if err != nil {
		return err
	}
	defer session.Close()

	report, err := session.Analyze(args[0], analyzeDocsFlag, analyzeSimilarityFlag)
	if err != nil {
		return err
	}

	if len(report.CodeChunks) == 0 {
		fmt.Printf("No code chunks match %q\n", args[0])
		return nil
	}

	for _, c := range report.CodeChunks {
		fmt.Printf("%s  %s:%d-%d\n", c.QualifiedName, c.Path, c.LineStart, c.LineEnd)
	}

	if analyzeDocsFlag {
		fmt.Printf("\nRelated documentation (%d):\n", len(report.RelatedDocs))
		for _, d := range report.RelatedDocs {
			fmt.Printf("  %s: %s\n", d.Path, d.HeadingPath)
		}
	}

	if analyzeSimilarityFlag {
		fmt.Println("\nNearest neighbors:")
		for id, neighbors := range report.SimilarDocs {
			fmt.Printf("  %s:\n", id)
			for _, n := range neighbors {
				fmt.Printf("    %.3f  %s\n", n.Similarity, n.ID)
			}
		}
	}

	return nil
}
