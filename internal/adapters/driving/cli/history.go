package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/storage/sqlite"
	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved pipeline runs",
	Long: `Lists runs saved with 'sei run --save-history' and shows the
case set of an individual run.`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one saved run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory is swapped in tests.
var openHistory = func(dataDir string) (driven.HistoryStore, error) {
	return sqlite.NewStore(dataDir)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := openHistory(settings.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No saved runs.")
		return nil
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  %s  %s  %d case(s)",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Unit, len(run.Cases))
		if run.Report != nil {
			line += fmt.Sprintf("  %d/%d downloaded",
				run.Report.Succeeded, run.Report.Succeeded+run.Report.Failed)
		}
		cmd.Println(line)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := openHistory(settings.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		return fmt.Errorf("load run: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
