package main

import (
	"os"
)

// Version is populated via -ldflags at build time.
var Version = ""

func main() {
	SetVersion(Version)
	if err := Run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		os.Exit(1)
	}
}
