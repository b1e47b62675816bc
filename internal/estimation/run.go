package estimation

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/theory"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoSubjects  = errors.New("estimation request has no subjects")
	ErrNoTheories  = errors.New("estimation request has no theories")
	ErrNoInstances = errors.New("no theory produced any instance")
)

// Cache is the precomputed structure store that preorder-backed theories enumerate from.
type Cache interface {
	Ensure(altCount int) error
}

// InstanceSpace enumerates the candidate instances of a theory. It must be safe
// for concurrent use.
type InstanceSpace interface {
	Traverse(t theory.Theory, altCount int, visit func(theory.Instance) error) error
}

// SubjectError identifies the subject whose estimation failed.
type SubjectError struct {
	Subject string
	Err     error
}

func (e *SubjectError) Error() string {
	return fmt.Sprintf("subject %q: %v", e.Subject, e.Err)
}

func (e *SubjectError) Unwrap() error {
	return e.Err
}

// TheoryError identifies the theory whose enumeration or scoring failed.
type TheoryError struct {
	Theory theory.Theory
	Err    error
}

func (e *TheoryError) Error() string {
	return fmt.Sprintf("theory %s: %v", e.Theory, e.Err)
}

func (e *TheoryError) Unwrap() error {
	return e.Err
}

type ScoredInstance struct {
	Theory   theory.Theory
	Score    float64
	Instance []byte
}

type Request struct {
	Subjects           []domain.Subject
	Theories           []theory.Theory
	ForcedChoice       bool
	DisableParallelism bool
}

type Response struct {
	SubjectName   string
	MinimalScore  float64
	BestInstances []ScoredInstance
}

type runConfig struct {
	workers  int
	progress func(done, total int)
}

type Option func(*runConfig)

// WithWorkers bounds the number of subjects estimated at once. n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *runConfig) {
		c.workers = n
	}
}

// WithProgress registers a callback invoked after each subject completes.
// Under parallel execution it is called from worker goroutines.
func WithProgress(fn func(done, total int)) Option {
	return func(c *runConfig) {
		c.progress = fn
	}
}

// RunOne finds the least-error instances of theories for one subject.
//
// SequentiallyRationalizableChoice is always skipped, whatever the fit of the
// other theories.
func RunOne(space InstanceSpace, forcedChoice bool, subject *domain.Subject, theories []theory.Theory) (Response, error) {
	if len(theories) == 0 {
		return Response{}, ErrNoTheories
	}

	var best Best[ScoredInstance]
	for _, t := range theories {
		if _, ok := t.(theory.SequentiallyRationalizableChoice); ok {
			continue
		}
		partial, err := searchTheory(space, forcedChoice, subject, t)
		if err != nil {
			return Response{}, &TheoryError{Theory: t, Err: err}
		}
		best = Combine(best, partial)
	}

	instances, score, ok := best.Finish()
	if !ok {
		return Response{}, ErrNoInstances
	}
	sortInstances(instances)

	return Response{
		SubjectName:   subject.Name,
		MinimalScore:  score,
		BestInstances: instances,
	}, nil
}

func searchTheory(space InstanceSpace, forcedChoice bool, subject *domain.Subject, t theory.Theory) (Best[ScoredInstance], error) {
	var best Best[ScoredInstance]
	err := space.Traverse(t, subject.AltCount(), func(inst theory.Instance) error {
		score, err := inst.Score(forcedChoice, subject.Choices)
		if err != nil {
			return err
		}
		if !best.Admits(score) {
			return nil
		}
		p, err := inst.MarshalBinary()
		if err != nil {
			return fmt.Errorf("serialize instance: %w", err)
		}
		best.Add(score, ScoredInstance{Theory: t, Score: score, Instance: p})
		return nil
	})
	return best, err
}

func sortInstances(instances []ScoredInstance) {
	slices.SortFunc(instances, func(a, b ScoredInstance) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		if c := theory.Compare(a.Theory, b.Theory); c != 0 {
			return c
		}
		return bytes.Compare(a.Instance, b.Instance)
	})
}

// Run estimates every subject of req and returns one response per subject in
// request order. The first subject failure aborts the batch; under parallel
// execution it is the first failure observed, not necessarily the first in order.
func Run(ctx context.Context, cache Cache, space InstanceSpace, req *Request, opts ...Option) ([]Response, error) {
	if len(req.Subjects) == 0 {
		return nil, ErrNoSubjects
	}
	if len(req.Theories) == 0 {
		return nil, ErrNoTheories
	}

	cfg := runConfig{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}

	maxAlts := 0
	for i := range req.Subjects {
		maxAlts = max(maxAlts, req.Subjects[i].AltCount())
	}

	// linear orders are enumerated directly
	if !(len(req.Theories) == 1 && req.Theories[0] == theory.StrictTotalPreorderMaximization) {
		if err := cache.Ensure(maxAlts); err != nil {
			return nil, fmt.Errorf("ensure precomputed structures for %d alternatives: %w", maxAlts, err)
		}
	}

	out := make([]Response, len(req.Subjects))
	total := len(req.Subjects)
	var done atomic.Int64

	runSubject := func(i int) error {
		s := &req.Subjects[i]
		resp, err := RunOne(space, req.ForcedChoice, s, req.Theories)
		if err != nil {
			return &SubjectError{Subject: s.Name, Err: err}
		}
		out[i] = resp
		n := done.Add(1)
		if cfg.progress != nil {
			cfg.progress(int(n), total)
		}
		return nil
	}

	if req.DisableParallelism {
		for i := range req.Subjects {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := runSubject(i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i := range req.Subjects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return runSubject(i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
