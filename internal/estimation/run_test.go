package estimation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstance struct {
	score float64
	bytes []byte
	err   error
}

func (f fakeInstance) Predict(domain.AltSet, *domain.Alt) domain.AltSet {
	return domain.EmptySet()
}

func (f fakeInstance) Score(bool, []domain.ChoiceObservation) (float64, error) {
	return f.score, f.err
}

func (f fakeInstance) MarshalBinary() ([]byte, error) {
	return f.bytes, nil
}

type fakeSpace struct {
	instances map[theory.Theory][]fakeInstance
	err       error
}

func (s *fakeSpace) Traverse(t theory.Theory, _ int, visit func(theory.Instance) error) error {
	if s.err != nil {
		return s.err
	}
	for _, inst := range s.instances[t] {
		if err := visit(inst); err != nil {
			return err
		}
	}
	return nil
}

type countingCache struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (c *countingCache) Ensure(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, n)
	return c.err
}

func subject(name string, alts int) domain.Subject {
	labels := make([]string, alts)
	for i := range labels {
		labels[i] = fmt.Sprintf("x%d", i)
	}
	return domain.Subject{Name: name, Alternatives: labels}
}

func TestRunOne_NearTieKeepsBoth(t *testing.T) {
	top := theory.TopTwo{}
	space := &fakeSpace{instances: map[theory.Theory][]fakeInstance{
		top: {
			{score: 0.30000000005, bytes: []byte{1}},
			{score: 0.9, bytes: []byte{0}},
			{score: 0.3, bytes: []byte{2}},
		},
	}}
	cache := &countingCache{}

	s := subject("s1", 2)
	resps, err := Run(context.Background(), cache, space, &Request{
		Subjects: []domain.Subject{s},
		Theories: []theory.Theory{top},
	})
	require.NoError(t, err)
	require.Len(t, resps, 1)

	resp := resps[0]
	assert.Equal(t, "s1", resp.SubjectName)
	assert.InDelta(t, 0.3, resp.MinimalScore, Epsilon)
	// kept instances order by score before instance bytes
	assert.Equal(t, []ScoredInstance{
		{Theory: top, Score: 0.3, Instance: []byte{2}},
		{Theory: top, Score: 0.30000000005, Instance: []byte{1}},
	}, resp.BestInstances)
}

func TestRunOne_SortsAcrossTheories(t *testing.T) {
	pm := theory.PreorderMaximization{}
	uc := theory.UndominatedChoice{}
	space := &fakeSpace{instances: map[theory.Theory][]fakeInstance{
		uc: {{score: 1, bytes: []byte{0}}, {score: 1, bytes: []byte{3}}},
		pm: {{score: 1, bytes: []byte{9}}, {score: 2, bytes: []byte{1}}},
	}}

	s := subject("s", 3)
	resp, err := RunOne(space, false, &s, []theory.Theory{uc, pm})
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.MinimalScore)
	assert.Equal(t, []ScoredInstance{
		{Theory: pm, Score: 1, Instance: []byte{9}},
		{Theory: uc, Score: 1, Instance: []byte{0}},
		{Theory: uc, Score: 1, Instance: []byte{3}},
	}, resp.BestInstances)
}

func TestRunOne_SkipsSequentiallyRationalizable(t *testing.T) {
	src := theory.SequentiallyRationalizableChoice{}
	top := theory.TopTwo{}
	space := &fakeSpace{instances: map[theory.Theory][]fakeInstance{
		src: {{score: 0, bytes: []byte{7}}},
		top: {{score: 4, bytes: []byte{1}}},
	}}

	s := subject("s", 2)
	resp, err := RunOne(space, false, &s, []theory.Theory{src, top})
	require.NoError(t, err)
	assert.Equal(t, 4.0, resp.MinimalScore)
	require.Len(t, resp.BestInstances, 1)
	assert.Equal(t, top, resp.BestInstances[0].Theory)

	_, err = RunOne(space, false, &s, []theory.Theory{src})
	assert.ErrorIs(t, err, ErrNoInstances)
}

func TestRunOne_Errors(t *testing.T) {
	s := subject("s", 2)
	top := theory.TopTwo{}

	_, err := RunOne(&fakeSpace{}, false, &s, nil)
	assert.ErrorIs(t, err, ErrNoTheories)

	_, err = RunOne(&fakeSpace{}, false, &s, []theory.Theory{top})
	assert.ErrorIs(t, err, ErrNoInstances)

	_, err = RunOne(&fakeSpace{err: theory.ErrNotPrecomputed}, false, &s, []theory.Theory{top})
	var te *TheoryError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, top, te.Theory)
	assert.ErrorIs(t, err, theory.ErrNotPrecomputed)

	scoring := &fakeSpace{instances: map[theory.Theory][]fakeInstance{
		top: {{err: theory.ErrDeferralInForcedChoice}},
	}}
	_, err = RunOne(scoring, true, &s, []theory.Theory{top})
	assert.ErrorIs(t, err, theory.ErrDeferralInForcedChoice)
}

func TestRun_StrictTotalSkipsEnsure(t *testing.T) {
	cache := &countingCache{}
	space := theory.NewSpace(theory.NewPrecomputed())

	s := subject("s", 3)
	s.Choices = []domain.ChoiceObservation{{Menu: domain.SetOf(0, 1), Choice: domain.SetOf(1)}}
	resps, err := Run(context.Background(), cache, space, &Request{
		Subjects: []domain.Subject{s},
		Theories: []theory.Theory{theory.StrictTotalPreorderMaximization},
	})
	require.NoError(t, err)
	assert.Empty(t, cache.calls)
	require.Len(t, resps, 1)
	assert.Equal(t, 0.0, resps[0].MinimalScore)
	// rankings with 1 above 0: half of 3!
	assert.Len(t, resps[0].BestInstances, 3)
}

func TestRun_EnsuresMaxAltCount(t *testing.T) {
	cache := &countingCache{}
	top := theory.TopTwo{}
	space := &fakeSpace{instances: map[theory.Theory][]fakeInstance{top: {{score: 0}}}}

	_, err := Run(context.Background(), cache, space, &Request{
		Subjects: []domain.Subject{subject("a", 2), subject("b", 5), subject("c", 3)},
		Theories: []theory.Theory{theory.StrictTotalPreorderMaximization, top},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, cache.calls)

	cache.err = theory.ErrTooManyAlternatives
	_, err = Run(context.Background(), cache, space, &Request{
		Subjects: []domain.Subject{subject("a", 2)},
		Theories: []theory.Theory{top},
	})
	assert.ErrorIs(t, err, theory.ErrTooManyAlternatives)
}

func TestRun_Preconditions(t *testing.T) {
	cache := &countingCache{}
	space := &fakeSpace{}

	_, err := Run(context.Background(), cache, space, &Request{Theories: []theory.Theory{theory.TopTwo{}}})
	assert.ErrorIs(t, err, ErrNoSubjects)

	_, err = Run(context.Background(), cache, space, &Request{Subjects: []domain.Subject{subject("a", 1)}})
	assert.ErrorIs(t, err, ErrNoTheories)
	assert.Empty(t, cache.calls)
}

func TestRun_SubjectErrorAbortsBatch(t *testing.T) {
	top := theory.TopTwo{}
	space := &fakeSpace{}

	for _, sequential := range []bool{true, false} {
		_, err := Run(context.Background(), &countingCache{}, space, &Request{
			Subjects:           []domain.Subject{subject("only", 2)},
			Theories:           []theory.Theory{top},
			DisableParallelism: sequential,
		})
		var se *SubjectError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "only", se.Subject)
		assert.ErrorIs(t, err, ErrNoInstances)
	}
}

func TestRun_SequentialMatchesParallel(t *testing.T) {
	labels := []string{"a", "b", "c", "d"}
	var subjects []domain.Subject
	for i := 0; i < 12; i++ {
		s := domain.Subject{Name: fmt.Sprintf("s%02d", i), Alternatives: labels}
		for j := 0; j < 6; j++ {
			menu := domain.SetOf(domain.Alt(j%4), domain.Alt((j+i)%4), domain.Alt((j*i+1)%4))
			choice := domain.Singleton(menu.Alts()[(i+j)%menu.Size()])
			if (i+j)%5 == 0 {
				choice = domain.EmptySet()
			}
			s.Choices = append(s.Choices, domain.ChoiceObservation{Menu: menu, Choice: choice})
		}
		subjects = append(subjects, s)
	}

	req := &Request{Subjects: subjects, Theories: theory.Catalog()}
	pre := theory.NewPrecomputed()
	space := theory.NewSpace(pre)

	req.DisableParallelism = true
	sequential, err := Run(context.Background(), pre, space, req)
	require.NoError(t, err)

	var progress []int
	var mu sync.Mutex
	req.DisableParallelism = false
	parallel, err := Run(context.Background(), pre, space, req, WithWorkers(3), WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, len(subjects), total)
		progress = append(progress, done)
	}))
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	assert.Len(t, progress, len(subjects))
	for i, resp := range parallel {
		assert.Equal(t, subjects[i].Name, resp.SubjectName)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	top := theory.TopTwo{}
	space := &fakeSpace{instances: map[theory.Theory][]fakeInstance{top: {{score: 0}}}}
	_, err := Run(ctx, &countingCache{}, space, &Request{
		Subjects:           []domain.Subject{subject("a", 2)},
		Theories:           []theory.Theory{top},
		DisableParallelism: true,
	})
	assert.True(t, errors.Is(err, context.Canceled))
}
