package main

import (
	"os"

	"github.com/wonny/aegis-watch/cmd/watch/commands"
)

// main is the entry point for the watch CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/watch [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
