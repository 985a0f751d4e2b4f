package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/habhabhabs/aws-inventag/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Work with tag policy documents",
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate [policy-file]",
	Short: "Validate a policy document against the schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyValidate,
}

func init() {
	policyCmd.AddCommand(policyValidateCmd)
	rootCmd.AddCommand(policyCmd)
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading policy file: %w", err)
	}
	ruleSet, err := policy.Load(data)
	if err != nil {
		return err
	}
	fmt.Printf("Policy valid: %d required tags, %d exemptions, %d service overrides\n",
		len(ruleSet.Required), len(ruleSet.Exemptions), len(ruleSet.ServiceOverrides))
	return nil
}
