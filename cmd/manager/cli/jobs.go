package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/coffee-export/export-manager/jobs"
)

// Enqueuer submits tasks by type.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType, triggeredBy string) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector jobs.QueueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client := jobs.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []io.Closer{client, inspector}}
}

// NewJobsCLIWith builds the CLI around existing collaborators.
func NewJobsCLIWith(client Enqueuer, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JobsOptions carries the arguments after "jobs" and the output streams.
type JobsOptions struct {
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes "jobs trigger <task>", "jobs stats [--json]" or "jobs list"
// and returns the process exit code.
func (c *JobsCLI) Run(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(opts.Args) == 0 {
		printJobsUsage(opts.Stderr)
		return 2
	}
	switch opts.Args[0] {
	case "trigger":
		return c.trigger(ctx, opts.Args[1:], opts.Stdout, opts.Stderr)
	case "stats":
		return c.stats(opts.Args[1:], opts.Stdout, opts.Stderr)
	case "list":
		for _, t := range jobs.TaskTypes() {
			_, _ = fmt.Fprintln(opts.Stdout, t)
		}
		return 0
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: unknown command %q\n", opts.Args[0])
		printJobsUsage(opts.Stderr)
		return 2
	}
}

func (c *JobsCLI) trigger(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "jobs trigger: exactly one task type is required")
		return 2
	}
	if c.client == nil {
		_, _ = fmt.Fprintln(stderr, "jobs trigger: client not configured")
		return 1
	}
	info, err := c.client.Enqueue(ctx, strings.TrimSpace(args[0]), "cli")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}

func (c *JobsCLI) stats(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jobs stats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print queue stats as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	stats, err := jobs.InspectQueue(c.inspector)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
		return 1
	}
	if *asJSON {
		if err := json.NewEncoder(stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs stats: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d paused=%t\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived, stats.Paused)
	return 0
}

func printJobsUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: manager jobs <trigger TASK | stats [--json] | list>")
}
