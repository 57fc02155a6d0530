package sandbox

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ormasoftchile/grader/pkg/chart"
	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/program"
)

// UnitBuilder turns a program received by a worker back into a unit.
type UnitBuilder func(p *program.Program, instrument bool) (*Unit, error)

// ServeWorker reads one request from in, runs it in-process under the
// requested limits and writes the response to out.
func ServeWorker(ctx context.Context, in io.Reader, out io.Writer, build UnitBuilder) error {
	var req WorkerRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return errors.Wrapf(err, errors.WorkerFailed, "decode worker request: %v", err)
	}
	enc := json.NewEncoder(out)

	if err := applyLimits(req.Limits); err != nil {
		return enc.Encode(WorkerResponse{ID: req.ID, Error: err.Error()})
	}
	if req.Limits.Seccomp {
		if err := applySeccomp(); err != nil {
			return enc.Encode(WorkerResponse{ID: req.ID, Error: err.Error()})
		}
	}

	p := program.FromSource(req.Name, req.Source)
	u, err := build(p, req.Instrument)
	if err != nil {
		return enc.Encode(WorkerResponse{
			ID:      req.ID,
			Outcome: Outcome{Kind: RaisedError, Detail: describe(err)},
		})
	}
	res := NewInProcess(chart.NewBackend(), nil).Run(ctx, u, req.options())
	return enc.Encode(encodeResult(req.ID, res))
}
