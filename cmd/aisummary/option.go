package main

import "io"

// Options holds the root flags. The struct tags are interpreted by
// github.com/jessevdk/go-flags; positional arguments are note files.
type Options struct {
	Config    string      `short:"f" long:"config" description:"settings YAML path"`
	System    string      `short:"s" long:"system" description:"system prompt"`
	BaseURL   string      `long:"base-url" description:"OpenAI-compatible base URL"`
	Model     string      `short:"m" long:"model" description:"model name"`
	MaxTokens int         `long:"max-tokens" description:"completion token limit"`
	Backend   string      `short:"b" long:"backend" choice:"http" choice:"sdk" description:"streaming backend"`
	Trace     bool        `long:"trace" description:"export trace spans"`
	Version   *VersionCmd `command:"version" description:"Print version"`
}

// Init instantiates the sub-command referenced by the first argument so that
// flags.Parse can populate its fields.
func (o *Options) Init(firstArg string, stdout io.Writer) {
	switch firstArg {
	case "version":
		o.Version = &VersionCmd{out: stdout}
	}
}
