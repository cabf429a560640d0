package main

import (
	"fmt"
	"io"
	"os"
)

// version defaults to "dev" for local builds.
var version = "dev"

// SetVersion initializes the version string if non-empty.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// VersionCmd prints the CLI version.
type VersionCmd struct {
	out io.Writer
}

func (c *VersionCmd) Execute(_ []string) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintln(out, version)
	return err
}
