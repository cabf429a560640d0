package runner

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sweetpotato0/ai-summary/completion"
	"github.com/sweetpotato0/ai-summary/display"
	"github.com/sweetpotato0/ai-summary/pkg/logging"
)

// Runner executes prompt calls
type Runner interface {
	// Run streams one task into its sink
	Run(ctx context.Context, task *Task) (string, error)
}

// Task represents a prompt call to be executed
type Task struct {
	ID     string
	Config completion.RequestConfig
	Sink   display.Sink
}

func (t *Task) sink() display.Sink {
	if t.Sink == nil {
		return display.Discard
	}
	return t.Sink
}

// Result represents the result of a task execution
type Result struct {
	TaskID string
	Output string
	Error  error
}

// runner is the default implementation of Runner
type runner struct {
	streamer       completion.Streamer
	logger         *slog.Logger
	maxConcurrency int
	semaphore      chan struct{}
}

// New creates a new runner
func New(streamer completion.Streamer, maxConcurrency int) Runner {
	return newRunner(streamer, maxConcurrency)
}

func newRunner(streamer completion.Streamer, maxConcurrency int) *runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if streamer == nil {
		streamer = completion.New()
	}
	return &runner{
		streamer:       streamer,
		logger:         logging.WithComponent("runner"),
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
	}
}

// Run streams the task. A task that never gets a slot before ctx ends is
// reported to its sink like any other transport failure.
func (r *runner) Run(ctx context.Context, task *Task) (string, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		e := completion.NewTransportError(ctx.Err())
		completion.ReportFailure(task.sink(), r.logger.With("task", task.ID), e)
		return "", e
	}

	return r.streamer.Stream(ctx, task.Config, task.sink())
}

// ParallelRunner executes multiple tasks in parallel
type ParallelRunner struct {
	runner *runner
}

// NewParallelRunner creates a new parallel runner
func NewParallelRunner(streamer completion.Streamer, maxConcurrency int) *ParallelRunner {
	return &ParallelRunner{
		runner: newRunner(streamer, maxConcurrency),
	}
}

// RunParallel executes tasks concurrently. Results are in task order and a
// failing task never stops the others.
func (pr *ParallelRunner) RunParallel(ctx context.Context, tasks []*Task) []*Result {
	results := make([]*Result, len(tasks))

	var g errgroup.Group
	g.SetLimit(pr.runner.maxConcurrency)
	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = &Result{
						TaskID: task.ID,
						Error:  fmt.Errorf("panic in task %s: %v", task.ID, r),
					}
				}
			}()

			output, err := pr.runner.Run(ctx, task)
			results[i] = &Result{
				TaskID: task.ID,
				Output: output,
				Error:  err,
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// SequentialRunner executes tasks one after another
type SequentialRunner struct {
	runner *runner
}

// NewSequentialRunner creates a new sequential runner
func NewSequentialRunner(streamer completion.Streamer) *SequentialRunner {
	return &SequentialRunner{
		runner: newRunner(streamer, 1),
	}
}

// RunSequential executes tasks in order, using the output of each task as the
// user content of the next one.
func (sr *SequentialRunner) RunSequential(ctx context.Context, tasks []*Task) (*Result, error) {
	if len(tasks) == 0 {
		return &Result{}, nil
	}

	var lastOutput string
	for _, task := range tasks {
		step := *task
		if lastOutput != "" {
			step.Config.UserContent = lastOutput
		}

		output, err := sr.runner.Run(ctx, &step)
		if err != nil {
			return &Result{
				TaskID: task.ID,
				Output: output,
				Error:  err,
			}, err
		}

		lastOutput = output
	}

	return &Result{
		TaskID: tasks[len(tasks)-1].ID,
		Output: lastOutput,
	}, nil
}
