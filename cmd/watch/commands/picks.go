package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// picksCmd lists the latest persisted picks
var picksCmd = &cobra.Command{
	Use:   "picks",
	Short: "최근 선정 결과 조회",
	Long: `저장소에 기록된 최근 선정 결과를 최신순으로 출력합니다.

Example:
  go run ./cmd/watch picks
  go run ./cmd/watch picks --limit 20 --explain`,
	RunE: runPicks,
}

var (
	picksLimit   int
	picksExplain bool
)

func init() {
	rootCmd.AddCommand(picksCmd)

	picksCmd.Flags().IntVar(&picksLimit, "limit", 10, "출력 개수")
	picksCmd.Flags().BoolVar(&picksExplain, "explain", false, "설명 텍스트 포함")
}

func runPicks(cmd *cobra.Command, args []string) error {
	cfg, log, _, err := loadBase()
	if err != nil {
		return err
	}

	db, repo, err := newStorage(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	picks, err := repo.LatestPicks(cmd.Context(), picksLimit)
	if err != nil {
		return fmt.Errorf("list picks: %w", err)
	}

	out := cmd.OutOrStdout()
	printHeader(out, fmt.Sprintf("Latest picks (%d)", len(picks)))

	if len(picks) == 0 {
		printWarning(out, "No picks stored yet")
		return nil
	}

	for _, p := range picks {
		printPick(out, p, picksExplain)
	}
	printSeparator(out)
	return nil
}
