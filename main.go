package main

import (
	"os"

	"github.com/speedy-lang/sweep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
