package main

import (
	"os"

	"modgraph/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
