package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/habhabhabs/aws-inventag/internal/compliance"
	"github.com/habhabhabs/aws-inventag/internal/config"
	"github.com/habhabhabs/aws-inventag/internal/models"
	"github.com/habhabhabs/aws-inventag/internal/orchestrator"
	"github.com/habhabhabs/aws-inventag/internal/policy"
	"github.com/habhabhabs/aws-inventag/internal/shared/logger"
	"github.com/habhabhabs/aws-inventag/internal/state"
	"github.com/habhabhabs/aws-inventag/internal/telemetry"
)

var (
	runInputFile  string
	runNoSnapshot bool
	runTags       map[string]string
	runInterval   time.Duration
	runChangelog  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover, classify, and snapshot the inventory",
	Long: `Runs the full pipeline: resolves a session per configured account, fans
discovery out across services and regions, classifies every record
against the tag policy, and persists a content-addressed snapshot.

With --input, discovery is skipped and records are read from a prior
JSON export instead.`,
	RunE: runInventory,
}

func init() {
	runCmd.Flags().StringVar(&runInputFile, "input", "", "consolidate records from a JSON file instead of discovering")
	runCmd.Flags().BoolVar(&runNoSnapshot, "no-snapshot", false, "print the summary without persisting a snapshot")
	runCmd.Flags().StringToStringVar(&runTags, "tag", nil, "user tag attached to the snapshot (repeatable, key=value)")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "repeat the run on this interval, reloading the config between runs")
	runCmd.Flags().BoolVar(&runChangelog, "changelog", false, "print a Markdown changelog against the previous snapshot")
	rootCmd.AddCommand(runCmd)
}

func runInventory(cmd *cobra.Command, args []string) error {
	if runInterval > 0 {
		return runOnInterval(cmd)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runOnce(cmd, cfg)
}

// runOnInterval repeats the pipeline until the context is cancelled. The
// configuration manager watches the file, so edits to worker counts or
// retention take effect on the next iteration without a restart.
func runOnInterval(cmd *cobra.Command) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	manager, err := config.NewManager(path)
	if err != nil {
		return err
	}
	defer manager.Close()

	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()
	for {
		if err := runOnce(cmd, manager.Get()); err != nil {
			return err
		}
		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runOnce(cmd *cobra.Command, cfg *config.Config) error {
	log := logger.Get()
	metrics := telemetry.New()

	var ruleSet *policy.RuleSet
	if cfg.PolicyFile != "" {
		data, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("reading policy file: %w", err)
		}
		if ruleSet, err = policy.Load(data); err != nil {
			return err
		}
	}

	orch := orchestrator.New(cfg, log, metrics)

	var result *models.RunResult
	if runInputFile != "" {
		records, err := readRecords(runInputFile)
		if err != nil {
			return err
		}
		result, err = orch.RunWithRecords(cmd.Context(), records)
		if err != nil {
			return err
		}
	} else {
		discovered, err := orch.Run(cmd.Context())
		if err != nil {
			return err
		}
		result = discovered
	}

	var summary models.ComplianceSummary
	if ruleSet != nil {
		summary = compliance.Evaluate(result.Records, ruleSet)
	} else {
		summary = models.ComplianceSummary{Total: len(result.Records)}
	}

	printRunSummary(result, summary)

	if runNoSnapshot {
		return nil
	}
	store, err := state.NewStore(cfg.State.Dir, cfg.State.RetentionDays, cfg.State.MaxSnapshots, log)
	if err != nil {
		return err
	}
	previousID := ""
	if metas, err := store.List(); err == nil && len(metas) > 0 {
		previousID = metas[len(metas)-1].SnapshotID
	}
	id, err := store.Save(result.Records, summary, accountIDs(cfg), cfg.Regions, runTags)
	if err != nil {
		return err
	}
	fmt.Printf("\nSnapshot: %s\n", id)

	if runChangelog && previousID != "" && previousID != id {
		before, err := store.Load(previousID)
		if err != nil {
			// The previous snapshot may have been pruned by retention.
			log.WithError(err).Warn("previous snapshot unavailable, skipping changelog")
			return nil
		}
		after, err := store.Load(id)
		if err != nil {
			return err
		}
		delta, err := state.ComputeDelta(before, after, nil)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s", state.RenderChangelog(delta, before, after))
	}
	return nil
}

func readRecords(path string) ([]models.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input records: %w", err)
	}
	var records []models.Resource
	if err := json.Unmarshal(data, &records); err != nil {
		// Accept a full snapshot file as input as well.
		var snapshot models.Snapshot
		if err2 := json.Unmarshal(data, &snapshot); err2 != nil {
			return nil, fmt.Errorf("input is neither a record list nor a snapshot: %w", err)
		}
		records = snapshot.Records
	}
	return records, nil
}

func accountIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Accounts))
	for _, account := range cfg.Accounts {
		ids = append(ids, account.AccountID)
	}
	return ids
}

func printRunSummary(result *models.RunResult, summary models.ComplianceSummary) {
	fmt.Printf("Run %s finished in %s\n\n", result.RunID,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Account", "State", "Resources", "Regions", "Warnings", "Duration"})
	for _, stats := range result.Accounts {
		table.Append([]string{
			stats.AccountID,
			string(stats.State),
			fmt.Sprintf("%d", stats.ResourceCount),
			fmt.Sprintf("%d", len(stats.Regions)),
			fmt.Sprintf("%d", stats.WarningCount),
			stats.ProcessingTime.Round(time.Millisecond).String(),
		})
	}
	table.Render()

	fmt.Printf("\nResources: %d total, %d compliant, %d non-compliant, %d untagged (%.2f%%)\n",
		summary.Total, summary.Compliant, summary.NonCompliant, summary.Untagged,
		summary.CompliancePercentage)

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, warning := range result.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}
}
