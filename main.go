package main

import (
	"os"

	"github.com/conneroisu/pressify/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
