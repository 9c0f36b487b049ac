// Command chesscore-uci is the installable entrypoint for the engine; it
// is identical to the root module binary, kept as its own cmd/ package so
// `go install github.com/x4A81/chesscore/cmd/chesscore-uci@latest` names
// the binary explicitly rather than after the module's root package.
package main

import (
	"fmt"
	"os"

	"github.com/x4A81/chesscore/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "chesscore-uci:", err)
		os.Exit(1)
	}
}
