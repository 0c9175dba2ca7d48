package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf [case-number]",
	Short: "Download one case's rendered PDF",
	Long: `Locates the given case on the inbox listings and downloads its
rendered PDF with a single attempt.

The case number tolerates formatting variants; it is canonicalised
before matching.

Example:
  sei pdf 1500.01.0310980/2025-88 --dir ./pdfs`,
	Args: cobra.ExactArgs(1),
	RunE: runPDF,
}

var pdfDir string

func init() {
	pdfCmd.Flags().StringVar(&pdfDir, "dir", "",
		"Target directory for the PDF (default <data-dir>/pdf)")
	rootCmd.AddCommand(pdfCmd)
}

func runPDF(cmd *cobra.Command, args []string) error {
	number := domain.CanonicalCaseNumber(args[0])
	if number == "" {
		return fmt.Errorf("invalid case number %q", args[0])
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	st, err := newStack(settings, stackOptions{})
	if err != nil {
		return err
	}
	defer st.close()

	ctx := context.Background()

	collected, err := st.collector.Collect(ctx, domain.FilterCriteria{}, domain.PaginationCaps{})
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	var target *domain.Case
	for i := range collected.All {
		if collected.All[i].Number == number {
			target = &collected.All[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("case %s not found on the current unit's listings", number)
	}

	dir := pdfDir
	if dir == "" {
		dir = defaultDownloadDir(settings)
	}

	outcome := st.downloader.DownloadOne(ctx, target, dir)
	if !outcome.Succeeded {
		return fmt.Errorf("download %s: %s", number, outcome.Reason)
	}
	cmd.Printf("Saved %s (%d bytes)\n", outcome.Path, outcome.Size)
	return nil
}
