// Command chesscore runs the engine as a UCI chess engine, reading
// commands from stdin and writing protocol responses to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/x4A81/chesscore/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "chesscore:", err)
		os.Exit(1)
	}
}
