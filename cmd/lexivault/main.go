// Command lexivault is the CLI entry point for the reversible deletion
// engine. All behavior lives in internal/cli.
package main

import (
	"os"

	"github.com/toverud/lexivault/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
