package main

import (
	"github.com/custodia-labs/inquest-cli/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
