// Package health runs one-shot readiness checks against the storefront
// backends and reports them as a JSON status document.
//
// Checks run concurrently, each under its own timeout. A failing check never
// cancels the others, so the report always lists every failure.
package health

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// Report status values.
const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc is a health check function. It should return nil if the checked
// component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health holds the registered checks.
type Health struct {
	mu     sync.Mutex
	checks []check
}

// New creates a Health with no checks.
func New() *Health {
	return &Health{}
}

// AddCheck registers a check. A non-positive timeout means the check is only
// bounded by the context passed to Run.
func (h *Health) AddCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, check{name: name, timeout: timeout, fn: fn})
}

// Names returns the registered check names in registration order.
func (h *Health) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.checks))
	for i, c := range h.checks {
		out[i] = c.name
	}
	return out
}

// Report is the outcome of Run. Checks maps the name of every failed check
// to its error message.
type Report struct {
	Status string
	Checks map[string]string
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	return r.Status == StatusOK
}

// Run executes every check once and waits for all of them.
func (h *Health) Run(ctx context.Context) Report {
	h.mu.Lock()
	checks := make([]check, len(h.checks))
	copy(checks, h.checks)
	h.mu.Unlock()

	var (
		mu       sync.Mutex
		failures = make(map[string]string)
		g        errgroup.Group
	)
	for _, c := range checks {
		g.Go(func() error {
			if err := c.run(ctx); err != nil {
				mu.Lock()
				failures[c.name] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return Report{Status: StatusUnhealthy, Checks: failures}
	}
	return Report{Status: StatusOK}
}

func (c check) run(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.fn(ctx)
}

// Encode renders the report as {"status":...,"checks":{...}}. The checks
// object is omitted when empty; its keys are sorted.
func (r Report) Encode() []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("status")
	e.Str(r.Status)
	if len(r.Checks) > 0 {
		names := make([]string, 0, len(r.Checks))
		for name := range r.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(r.Checks[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()
	return append([]byte(nil), e.Bytes()...)
}

// WriteTo writes the encoded report followed by a newline.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(append(r.Encode(), '\n'))
	return int64(n), err
}
