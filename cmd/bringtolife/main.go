// Command bringtolife turns prompts and files into self-contained web pages
// and keeps them in a local history.
package main

import (
	"os"

	"github.com/mesh-intelligence/bringtolife/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
