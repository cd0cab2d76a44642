package main

import (
	"os"

	"github.com/morroware/retroscript/cmd/retroscript/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
