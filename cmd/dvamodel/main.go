package main

import (
	"os"

	"dvamodel/internal/ui/cli"
)

func main() {
	os.Exit(cli.Execute())
}
