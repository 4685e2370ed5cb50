// Command workbench runs the sandboxed workspace runtime: an MCP tool
// server plus indexing and search commands over a workspace directory.
package main

import (
	"os"

	"github.com/custodia-labs/workbench/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
