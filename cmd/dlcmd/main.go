package main

import (
	"os"

	"github.com/ariel-frischer/dlcmd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
