package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-watch/internal/api/handlers"
	"github.com/wonny/aegis-watch/internal/brain"
)

// selectCmd runs the pipeline once without the HTTP server
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "선정 파이프라인 1회 실행",
	Long: `JSON 파일의 top-gainer 목록으로 선정 파이프라인을 1회 실행하고
응답을 출력합니다. 입력은 {"gainers":[...]} / {"stocks":[...]} 또는 배열.

Example:
  go run ./cmd/watch select --file gainers.json
  cat gainers.json | go run ./cmd/watch select --file - --top 1`,
	RunE: runSelect,
}

var (
	selectFile string
	selectTopN int
	selectFull bool
)

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVarP(&selectFile, "file", "f", "-", "입력 JSON 파일 (- = stdin)")
	selectCmd.Flags().IntVar(&selectTopN, "top", 0, "선정 종목 수 (1 또는 2, 0 = 기본값)")
	selectCmd.Flags().BoolVar(&selectFull, "full", false, "context 포함 전체 응답 출력")
}

func runSelect(cmd *cobra.Command, args []string) error {
	rows, err := readRows(selectFile)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.orchestrator.Run(cmd.Context(), brain.Request{Rows: rows, TopN: selectTopN})
	if err != nil {
		return err
	}

	// 비동기 tracker 알림은 CLI에서는 기다리지 않음
	if !selectFull {
		resp.Context.Candidates = nil
		resp.Context.Policy.Thresholds = nil
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if resp.ErrorMessage != "" {
		printWarning(cmd.ErrOrStderr(), resp.ErrorMessage)
	}
	return nil
}

// readRows accepts the endpoint body shape or a bare array
func readRows(path string) ([]map[string]interface{}, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		var rows []map[string]interface{}
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return rows, nil
	}

	var req handlers.SelectRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if len(req.Gainers) > 0 {
		return req.Gainers, nil
	}
	return req.Stocks, nil
}
