package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/config/file"
	"github.com/automatiza-mg/sei-cli/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect the case inbox, with optional documents and PDFs",
	Long: `Runs the full pipeline: sign in, activate the configured unit,
paginate the Received and Generated listings into one deduplicated
case set, then optionally attach each case's document tree and
download rendered case PDFs.

Filters are conjunctive; list-valued filters match when any term is
contained in the field, case-insensitively.

Examples:
  # Unviewed cases only
  sei run --visibility unviewed

  # Cases assigned to a colleague, documents attached
  sei run --assignee fulano --docs

  # Download PDFs for every case with new documents, 4 workers
  sei run --new-docs --download --parallel --workers 4`,
	RunE: runRun,
}

// Flags for run.
var (
	runVisibility    string
	runCategories    []string
	runAssignees     []string
	runTypes         []string
	runMarkers       []string
	runNewDocs       bool
	runAnnotated     bool
	runLimit         int
	runMaxPages      int
	runMaxReceived   int
	runMaxGenerated  int
	runDocs          bool
	runDocsLimit     int
	runDumpHTML      bool
	runDumpLimit     int
	runDownload      bool
	runDownloadDir   string
	runParallel      bool
	runWorkers       int
	runRetries       int
	runDownloadLimit int
	runSaveHistory   bool
	runJSON          bool
)

func init() {
	flags := runCmd.Flags()

	flags.StringVar(&runVisibility, "visibility", "any",
		"Filter by viewed state: any, viewed or unviewed")
	flags.StringSliceVar(&runCategories, "category", nil,
		"Restrict to a listing category: received, generated")
	flags.StringSliceVar(&runAssignees, "assignee", nil,
		"Keep cases whose assignee name contains any of the terms")
	flags.StringSliceVar(&runTypes, "type", nil,
		"Keep cases whose type contains any of the terms")
	flags.StringSliceVar(&runMarkers, "marker", nil,
		"Keep cases carrying a marker containing any of the terms")
	flags.BoolVar(&runNewDocs, "new-docs", false,
		"Keep only cases flagged with new documents")
	flags.BoolVar(&runAnnotated, "annotated", false,
		"Keep only cases carrying annotations")
	flags.IntVar(&runLimit, "limit", 0,
		"Cap the filtered case set (0 = unlimited)")

	flags.IntVar(&runMaxPages, "max-pages", 0,
		"Cap listing pages read per category (0 = all)")
	flags.IntVar(&runMaxReceived, "max-received-pages", 0,
		"Cap pages read from the Received listing (0 = all)")
	flags.IntVar(&runMaxGenerated, "max-generated-pages", 0,
		"Cap pages read from the Generated listing (0 = all)")

	flags.BoolVar(&runDocs, "docs", false,
		"Attach each case's document tree")
	flags.IntVar(&runDocsLimit, "docs-limit", 0,
		"Cap how many cases are enriched (0 = all)")
	flags.BoolVar(&runDumpHTML, "dump-html", false,
		"Persist raw document-tree markup to the dump directory")
	flags.IntVar(&runDumpLimit, "dump-limit", 0,
		"Cap how many markup dumps are written (0 = sink default)")

	flags.BoolVar(&runDownload, "download", false,
		"Download the rendered PDF of each case")
	flags.StringVar(&runDownloadDir, "dir", "",
		"Target directory for PDFs (default <data-dir>/pdf)")
	flags.BoolVar(&runParallel, "parallel", false,
		"Download through a bounded worker pool")
	flags.IntVar(&runWorkers, "workers", 4,
		"Worker count in parallel mode")
	flags.IntVar(&runRetries, "retries", 3,
		"Per-case download attempt budget")
	flags.IntVar(&runDownloadLimit, "download-limit", 0,
		"Cap how many cases are downloaded (0 = all)")

	flags.BoolVar(&runSaveHistory, "save-history", false,
		"Persist the run to the local history store")
	flags.BoolVar(&runJSON, "json", false,
		"Print the result as JSON instead of a summary")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	opts, err := buildRunOptions(settings)
	if err != nil {
		return err
	}

	st, err := newStack(settings, stackOptions{
		dumpHTML: runDumpHTML,
		history:  runSaveHistory,
	})
	if err != nil {
		return err
	}
	defer st.close()

	result, err := st.pipeline.Run(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if runJSON {
		return printJSON(cmd, result)
	}
	printSummary(cmd, result)
	return nil
}

// buildRunOptions validates the flag surface into typed options.
func buildRunOptions(settings *file.Settings) (domain.RunOptions, error) {
	visibility, err := parseVisibility(runVisibility)
	if err != nil {
		return domain.RunOptions{}, err
	}
	categories, err := parseCategories(runCategories)
	if err != nil {
		return domain.RunOptions{}, err
	}

	dir := runDownloadDir
	if dir == "" {
		dir = defaultDownloadDir(settings)
	}

	return domain.RunOptions{
		Criteria: domain.FilterCriteria{
			Visibility:          visibility,
			Categories:          categories,
			Assignees:           runAssignees,
			Types:               runTypes,
			Markers:             runMarkers,
			RequireNewDocuments: runNewDocs,
			RequireAnnotations:  runAnnotated,
			Limit:               runLimit,
		},
		Pagination: domain.PaginationCaps{
			ReceivedPages:  runMaxReceived,
			GeneratedPages: runMaxGenerated,
			TotalPages:     runMaxPages,
		},
		Enrich: domain.EnrichOptions{
			Enabled:   runDocs || runDumpHTML,
			Limit:     runDocsLimit,
			DumpHTML:  runDumpHTML || settings.DebugHTML,
			DumpLimit: runDumpLimit,
		},
		Download: domain.DownloadOptions{
			Enabled:  runDownload,
			Dir:      dir,
			Parallel: runParallel,
			Workers:  runWorkers,
			Retries:  runRetries,
			Limit:    runDownloadLimit,
		},
		PersistHistory: runSaveHistory,
	}, nil
}

func parseVisibility(value string) (domain.Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "any", "all":
		return domain.VisibilityAny, nil
	case "viewed", "seen":
		return domain.VisibilityViewed, nil
	case "unviewed", "unseen", "new":
		return domain.VisibilityUnviewed, nil
	}
	return "", fmt.Errorf("unknown visibility %q (use any, viewed or unviewed)", value)
}

func parseCategories(values []string) ([]domain.Category, error) {
	var out []domain.Category
	for _, value := range values {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "received", "recebidos":
			out = append(out, domain.CategoryReceived)
		case "generated", "gerados":
			out = append(out, domain.CategoryGenerated)
		default:
			return nil, fmt.Errorf("unknown category %q (use received or generated)", value)
		}
	}
	return out, nil
}

// runExport is the JSON shape printed with --json.
type runExport struct {
	Unit      string              `json:"unit"`
	Cases     []domain.Case       `json:"cases"`
	Warnings  []domain.Warning    `json:"warnings,omitempty"`
	Report    *domain.BatchReport `json:"report,omitempty"`
	ElapsedMS int64               `json:"elapsed_ms"`
}

func printJSON(cmd *cobra.Command, result *domain.RunResult) error {
	export := runExport{
		Unit:      result.Unit,
		Cases:     result.Cases,
		Warnings:  result.Warnings,
		Report:    result.Report,
		ElapsedMS: result.Elapsed.Milliseconds(),
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printSummary(cmd *cobra.Command, result *domain.RunResult) {
	cmd.Printf("Unit: %s\n", result.Unit)
	cmd.Printf("Cases: %d matched of %d collected\n",
		len(result.Cases), len(result.AllCases))

	for i := range result.Cases {
		c := &result.Cases[i]
		line := c.Number
		if c.TypeSpec != "" {
			line += "  " + c.TypeSpec
		}
		if c.AssigneeName != "" {
			line += "  [" + c.AssigneeName + "]"
		}
		if len(c.Documents) > 0 {
			line += fmt.Sprintf("  (%d document(s))", len(c.Documents))
		}
		cmd.Printf("  %s\n", line)
	}

	if report := result.Report; report != nil {
		cmd.Printf("Downloads: %d succeeded, %d failed in %s\n",
			report.Succeeded, report.Failed, report.Elapsed.Round(time.Millisecond))
	}

	if len(result.Warnings) > 0 {
		cmd.Printf("Warnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			if w.CaseNumber != "" {
				cmd.Printf("  [%s] %s: %s\n", w.Stage, w.CaseNumber, w.Message)
			} else {
				cmd.Printf("  [%s] %s\n", w.Stage, w.Message)
			}
		}
	}
}
