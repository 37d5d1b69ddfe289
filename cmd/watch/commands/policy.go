package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-watch/internal/strategyconfig"
)

// policyCmd prints the effective selection policy
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "적용 중인 선정 정책 출력",
	Long: `STRATEGY_FILE (또는 내장 기본값)을 검증하고
유효 정책과 해시를 출력합니다. 응답 context.policy.hash와 동일한 값입니다.

Example:
  go run ./cmd/watch policy
  go run ./cmd/watch policy --strategy config/strategy/top_gainers.yaml`,
	RunE: runPolicy,
}

func init() {
	rootCmd.AddCommand(policyCmd)
}

func runPolicy(cmd *cobra.Command, args []string) error {
	cfg, _, strategy, err := loadBase()
	if err != nil {
		return err
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return fmt.Errorf("hash policy: %w", err)
	}

	out, err := yaml.Marshal(strategy)
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}

	w := cmd.OutOrStdout()
	printHeader(w, "Selection policy")
	printField(w, "Source", cfg.StrategyFile)
	printField(w, "Hash", hash)
	printSeparator(w)
	fmt.Fprint(w, string(out))
	printSeparator(w)
	return nil
}
