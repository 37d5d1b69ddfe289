package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "watch",
	Short: "Aegis Watch - 급등주 워치리스트 선정",
	Long: `Aegis Watch CLI

Top-gainer 후보를 보강/필터/랭킹한 뒤 advisor 추천을
정책으로 검증하여 최대 2종목을 선정합니다.

Usage:
  go run ./cmd/watch [command]

Examples:
  go run ./cmd/watch api
  go run ./cmd/watch select --file gainers.json --top 2
  go run ./cmd/watch picks --limit 20
  go run ./cmd/watch policy`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy policy YAML (default is STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
