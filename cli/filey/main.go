package main

import (
	"os"

	fileycmder "github.com/fileybot/filey/cmd/filey"
)

func main() {
	cmd := fileycmder.NewFileyCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
