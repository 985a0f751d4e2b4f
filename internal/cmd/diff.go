package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/habhabhabs/aws-inventag/internal/state"
)

var (
	diffFormat string
	diffOutput string
)

var diffCmd = &cobra.Command{
	Use:   "diff [before-id] [after-id]",
	Short: "Diff two snapshots and render a changelog",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffFormat, "format", "markdown", "output format (markdown, json)")
	diffCmd.Flags().StringVar(&diffOutput, "output", "", "write to file instead of stdout")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	before, err := store.Load(args[0])
	if err != nil {
		return err
	}
	after, err := store.Load(args[1])
	if err != nil {
		return err
	}
	delta, err := state.ComputeDelta(before, after, nil)
	if err != nil {
		return err
	}

	var out []byte
	switch diffFormat {
	case "json":
		if out, err = json.MarshalIndent(delta, "", "  "); err != nil {
			return err
		}
	case "markdown", "md":
		out = []byte(state.RenderChangelog(delta, before, after))
	default:
		return fmt.Errorf("unsupported diff format %q", diffFormat)
	}

	if diffOutput == "" {
		fmt.Print(string(out))
		return nil
	}
	if err := os.WriteFile(diffOutput, out, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", diffOutput)
	return nil
}
