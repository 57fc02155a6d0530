package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ormasoftchile/grader/pkg/config"
)

// workerGrace is how long past the budget the parent waits before killing
// a worker that has not replied.
const workerGrace = 500 * time.Millisecond

// Subprocess runs each unit in a fresh worker process. The worker is killed
// when the budget elapses, so runaway programs cannot outlive the run.
type Subprocess struct {
	command []string
	limits  config.WorkerConfig
	logger  *zap.Logger
}

// NewSubprocess returns a runner that starts command for every run. An
// empty command re-executes the current binary as "sandbox-worker".
func NewSubprocess(command []string, limits config.WorkerConfig, logger *zap.Logger) (*Subprocess, error) {
	if len(command) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate grader binary: %w", err)
		}
		command = []string{self, "sandbox-worker"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subprocess{command: command, limits: limits, logger: logger}, nil
}

// Run executes u in a worker process.
func (s *Subprocess) Run(ctx context.Context, u *Unit, opts Options) *Result {
	start := time.Now()
	id := uuid.NewString()
	fail := func(kind OutcomeKind, detail string) *Result {
		return &Result{
			Bindings: map[string]any{},
			Outcome:  Outcome{Kind: kind, Detail: detail},
			Elapsed:  time.Since(start),
			Counters: newCounters(u.Loops).snapshot(),
		}
	}

	payload, err := json.Marshal(opts.request(id, u, s.limits))
	if err != nil {
		return fail(RaisedError, "WorkerError: encode request: "+err.Error())
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout+workerGrace)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.command[0], s.command[1:]...) //#nosec G204 -- command is the grader binary itself
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("starting worker", zap.String("id", id), zap.Strings("command", s.command))
	err = cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return fail(TimedOut, fmt.Sprintf("Execution timed out after %s", opts.Timeout))
	}
	if ctx.Err() != nil {
		return fail(RaisedError, "Cancelled: "+ctx.Err().Error())
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		s.logger.Warn("worker failed", zap.String("id", id), zap.Error(err))
		return fail(RaisedError, "WorkerError: "+detail)
	}

	var resp WorkerResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fail(RaisedError, "WorkerError: decode response: "+err.Error())
	}
	if resp.ID != id {
		return fail(RaisedError, fmt.Sprintf("WorkerError: response id %q does not match request %q", resp.ID, id))
	}
	if resp.Error != "" {
		return fail(RaisedError, "WorkerError: "+resp.Error)
	}
	res, err := decodeResult(resp)
	if err != nil {
		return fail(RaisedError, "WorkerError: "+err.Error())
	}
	return res
}
