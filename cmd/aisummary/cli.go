package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/sweetpotato0/ai-summary/completion"
	"github.com/sweetpotato0/ai-summary/config"
	"github.com/sweetpotato0/ai-summary/contrib/provider/openai"
	"github.com/sweetpotato0/ai-summary/display"
	"github.com/sweetpotato0/ai-summary/pkg/logging"
	"github.com/sweetpotato0/ai-summary/pkg/telemetry"
	"github.com/sweetpotato0/ai-summary/runner"
)

// Run parses flags, summarizes the notes named by the positional arguments
// (stdin when there are none) and streams the result to stdout. The returned
// error only drives the exit code; user-facing failure text has already been
// written to stdout.
func Run(args []string, stdin io.Reader, stdout io.Writer) error {
	opts := &Options{}
	var first string
	if len(args) > 0 {
		first = args[0]
	}
	opts.Init(first, stdout)

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.SubcommandsOptional = true
	files, err := parser.ParseArgs(args)
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return nil
		}
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if parser.Active != nil {
		return nil
	}

	settings, err := opts.settings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Trace {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{ServiceVersion: version, Writer: os.Stderr})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		defer shutdown(context.Background())
	}

	notes, err := readNotes(files, stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return summarize(ctx, newStreamer(settings), settings, notes, stdout)
}

// settings loads the settings file and environment, then applies flags.
func (o *Options) settings() (config.Settings, error) {
	s, err := config.LoadSettings(o.Config)
	if err != nil {
		return s, err
	}
	if o.System != "" {
		s.SystemPrompt = o.System
	}
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}
	if o.Model != "" {
		s.Model = o.Model
	}
	if o.MaxTokens != 0 {
		s.MaxTokens = o.MaxTokens
	}
	if o.Backend != "" {
		s.Backend = o.Backend
	}
	if err := config.ValidateSettings(s); err != nil {
		return s, err
	}
	return s, nil
}

func newStreamer(s config.Settings) completion.Streamer {
	hc := &http.Client{Timeout: s.Timeout()}
	if s.Backend == config.BackendSDK {
		return openai.New(&openai.Config{HTTPClient: hc})
	}
	return completion.New(completion.WithHTTPClient(hc))
}

type note struct {
	name    string
	content string
}

func readNotes(files []string, stdin io.Reader) ([]note, error) {
	if len(files) == 0 {
		files = []string{"-"}
	}
	notes := make([]note, 0, len(files))
	for _, name := range files {
		var (
			data []byte
			err  error
		)
		if name == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("read note %s: %w", name, err)
		}
		notes = append(notes, note{name: name, content: string(data)})
	}
	return notes, nil
}

func requestConfig(s config.Settings, content string) completion.RequestConfig {
	return completion.RequestConfig{
		SystemPrompt: s.SystemPrompt,
		UserContent:  content,
		APIKey:       s.APIKey,
		BaseURL:      s.BaseURL,
		Model:        s.Model,
		MaxTokens:    s.MaxTokens,
	}
}

// summarize streams a single note live to stdout. Several notes run in
// parallel into buffers that are printed in argument order.
func summarize(ctx context.Context, streamer completion.Streamer, s config.Settings, notes []note, stdout io.Writer) error {
	logger := logging.WithComponent("cli")

	if len(notes) == 1 {
		_, err := streamer.Stream(ctx, requestConfig(s, notes[0].content), display.NewWriter(stdout))
		fmt.Fprintln(stdout)
		return err
	}

	tasks := make([]*runner.Task, len(notes))
	buffers := make([]*display.Buffer, len(notes))
	for i, n := range notes {
		buffers[i] = display.NewBuffer()
		tasks[i] = &runner.Task{ID: n.name, Config: requestConfig(s, n.content), Sink: buffers[i]}
	}
	results := runner.NewParallelRunner(streamer, s.Concurrency).RunParallel(ctx, tasks)

	var failed []string
	for i, res := range results {
		fmt.Fprintf(stdout, "==> %s <==\n%s\n\n", res.TaskID, buffers[i].String())
		if res.Error != nil {
			failed = append(failed, res.TaskID)
		}
	}
	if len(failed) > 0 {
		logger.Warn("some notes failed", "count", len(failed), "notes", strings.Join(failed, ","))
		return fmt.Errorf("%d of %d notes failed", len(failed), len(notes))
	}
	return nil
}
