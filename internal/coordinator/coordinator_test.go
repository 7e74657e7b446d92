package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caralabs/carad/internal/answerstore"
	"github.com/caralabs/carad/internal/generator"
)

// fakeStore is a scriptable answer store.
type fakeStore struct {
	mu          sync.Mutex
	candidate   *answerstore.Candidate
	queryErr    error
	queryCalls  int
	contextDocs []string
	contextErr  error
	persisted   []persistCall
	persistErr  error
}

type persistCall struct {
	query  string
	answer string
	meta   answerstore.Metadata
}

func (s *fakeStore) Query(ctx context.Context, query string) (*answerstore.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.candidate, nil
}

func (s *fakeStore) Persist(ctx context.Context, query, answer string, meta answerstore.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return s.persistErr
	}
	s.persisted = append(s.persisted, persistCall{query: query, answer: answer, meta: meta})
	return nil
}

func (s *fakeStore) Context(ctx context.Context, module, query string, k int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contextErr != nil {
		return nil, s.contextErr
	}
	return s.contextDocs, nil
}

func (s *fakeStore) AddQA(ctx context.Context, module, question, answer string, meta map[string]string) error {
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryCalls
}

func (s *fakeStore) persistedCalls() []persistCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]persistCall(nil), s.persisted...)
}

// fakeGenerator scripts generation outcomes.
type fakeGenerator struct {
	mu       sync.Mutex
	answer   string
	err      error
	blockCtx bool // wait for ctx expiry, simulating a slow model
	calls    int
	lastReq  generator.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	g.mu.Lock()
	g.calls++
	g.lastReq = req
	blockCtx, answer, err := g.blockCtx, g.answer, g.err
	g.mu.Unlock()

	if blockCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (g *fakeGenerator) generateCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) request() generator.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastReq
}

func newTestCoordinator(t *testing.T, store *fakeStore, gen *fakeGenerator, cfg Config) *Coordinator {
	t.Helper()
	c, err := New(store, gen, cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, &fakeGenerator{}, Config{}, nil, nil)
	assert.Error(t, err)

	_, err = New(&fakeStore{}, nil, Config{}, nil, nil)
	assert.Error(t, err)
}

func TestSubmit_InvalidSubmission(t *testing.T) {
	c := newTestCoordinator(t, &fakeStore{}, &fakeGenerator{}, Config{})

	_, err := c.Submit(context.Background(), "", "query", "")
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = c.Submit(context.Background(), "alice", "", "")
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestSubmit_RecordedAnswerReused(t *testing.T) {
	store := &fakeStore{candidate: &answerstore.Candidate{
		Answer:   "recorded answer",
		Distance: 0.1,
		Module:   "1",
	}}
	gen := &fakeGenerator{}
	c := newTestCoordinator(t, store, gen, Config{})

	resp, err := c.Submit(context.Background(), "alice", "what is annex A?", "1")
	require.NoError(t, err)

	assert.Equal(t, SourceDatabase, resp.Source)
	assert.Equal(t, "recorded answer", resp.Text)
	assert.Empty(t, resp.TaskID)
	assert.Zero(t, gen.generateCalls(), "generator must not run on a store hit")
}

func TestSubmit_DistanceBeyondThreshold(t *testing.T) {
	store := &fakeStore{candidate: &answerstore.Candidate{
		Answer:   "distant answer",
		Distance: 0.5,
		Module:   "1",
	}}
	gen := &fakeGenerator{answer: "fresh answer"}
	c := newTestCoordinator(t, store, gen, Config{})

	resp, err := c.Submit(context.Background(), "alice", "what is annex A?", "1")
	require.NoError(t, err)

	assert.True(t, resp.Pending())
	assert.NotEmpty(t, resp.TaskID)
}

func TestSubmit_ModuleMismatchNeverReused(t *testing.T) {
	// distance passes, module does not: an answer scoped to another
	// compliance domain must not be reused silently.
	store := &fakeStore{candidate: &answerstore.Candidate{
		Answer:   "risk answer",
		Distance: 0.05,
		Module:   "2",
	}}
	gen := &fakeGenerator{answer: "iso answer"}
	c := newTestCoordinator(t, store, gen, Config{})

	resp, err := c.Submit(context.Background(), "alice", "q", "1")
	require.NoError(t, err)
	assert.True(t, resp.Pending())
}

func TestAcceptable(t *testing.T) {
	c := newTestCoordinator(t, &fakeStore{}, &fakeGenerator{}, Config{ReuseThreshold: 0.25})

	tests := []struct {
		name      string
		candidate *answerstore.Candidate
		module    string
		want      bool
	}{
		{"nil candidate", nil, "", false},
		{"close match no modules", &answerstore.Candidate{Distance: 0.1}, "", true},
		{"close match same module", &answerstore.Candidate{Distance: 0.1, Module: "1"}, "1", true},
		{"close match candidate unscoped", &answerstore.Candidate{Distance: 0.1}, "1", true},
		{"close match request unscoped", &answerstore.Candidate{Distance: 0.1, Module: "1"}, "", true},
		{"module mismatch", &answerstore.Candidate{Distance: 0.1, Module: "2"}, "1", false},
		{"at threshold", &answerstore.Candidate{Distance: 0.25}, "", false},
		{"beyond threshold", &answerstore.Candidate{Distance: 0.5, Module: "1"}, "1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.acceptable(tt.candidate, tt.module))
		})
	}
}

func TestSubmit_StoreUnavailableIsAdvisory(t *testing.T) {
	store := &fakeStore{queryErr: errors.New("store down")}
	gen := &fakeGenerator{answer: "generated anyway"}
	c := newTestCoordinator(t, store, gen, Config{})

	resp, err := c.Submit(context.Background(), "alice", "q", "")
	require.NoError(t, err)
	assert.True(t, resp.Pending())
}

func TestLifecycle_GenerateCompletePoll(t *testing.T) {
	store := &fakeStore{contextDocs: []string{"doc one"}}
	gen := &fakeGenerator{answer: "generated answer"}
	c := newTestCoordinator(t, store, gen, Config{})

	resp, err := c.Submit(context.Background(), "alice", "what is annex A?", "1")
	require.NoError(t, err)
	require.True(t, resp.Pending())

	require.Eventually(t, func() bool {
		polled, err := c.Poll(resp.TaskID)
		return err == nil && !polled.Pending()
	}, time.Second, 5*time.Millisecond)

	polled, err := c.Poll(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, polled.Source)
	assert.Equal(t, "generated answer", polled.Text)
	assert.Equal(t, "1", polled.Module)

	// Context documents flow through to the generator.
	assert.Equal(t, []string{"doc one"}, gen.request().Context)

	// The answer is persisted for future reuse.
	require.Eventually(t, func() bool {
		return len(store.persistedCalls()) == 1
	}, time.Second, 5*time.Millisecond)
	call := store.persistedCalls()[0]
	assert.Equal(t, "what is annex A?", call.query)
	assert.Equal(t, "generated answer", call.answer)
	assert.Equal(t, "alice", call.meta.Subject)
	assert.Equal(t, string(SourceGenerated), call.meta.Source)
}

func TestPoll_Unknown(t *testing.T) {
	c := newTestCoordinator(t, &fakeStore{}, &fakeGenerator{}, Config{})

	_, err := c.Poll("task_999_deadbeef")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = c.Poll("")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestPoll_PendingDistinctFromNotFound(t *testing.T) {
	gen := &fakeGenerator{blockCtx: true}
	c := newTestCoordinator(t, &fakeStore{}, gen, Config{GenerationTimeout: time.Second})

	resp, err := c.Submit(context.Background(), "alice", "q", "")
	require.NoError(t, err)

	polled, err := c.Poll(resp.TaskID)
	require.NoError(t, err)
	assert.True(t, polled.Pending())
	assert.Equal(t, resp.TaskID, polled.TaskID)
}

func TestGenerate_TimeoutFallsBack(t *testing.T) {
	gen := &fakeGenerator{blockCtx: true}
	c := newTestCoordinator(t, &fakeStore{}, gen, Config{GenerationTimeout: 20 * time.Millisecond})

	resp, err := c.Submit(context.Background(), "alice", "slow question", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		polled, err := c.Poll(resp.TaskID)
		return err == nil && !polled.Pending()
	}, time.Second, 5*time.Millisecond)

	polled, err := c.Poll(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, polled.Source, "timeouts are converted to usable answers")
	assert.Contains(t, polled.Text, "slow question")
	assert.Contains(t, polled.Text, "high load")
}

func TestGenerate_FailureCompletesWithErrorSource(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{err: errors.New("model exploded")}
	c := newTestCoordinator(t, store, gen, Config{})

	resp, err := c.Submit(context.Background(), "alice", "q", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		polled, err := c.Poll(resp.TaskID)
		return err == nil && !polled.Pending()
	}, time.Second, 5*time.Millisecond)

	polled, err := c.Poll(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, SourceError, polled.Source)
	assert.Empty(t, store.persistedCalls(), "failed generations are not persisted")

	// The failure is not cached: resubmitting reaches generation again.
	resp2, err := c.Submit(context.Background(), "alice", "q", "")
	require.NoError(t, err)
	assert.True(t, resp2.Pending())
}

func TestDedup_CompletedAnswerServesBurst(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{answer: "the answer"}
	c := newTestCoordinator(t, store, gen, Config{})

	first, err := c.Submit(context.Background(), "alice", "q", "")
	require.NoError(t, err)
	require.True(t, first.Pending())

	require.Eventually(t, func() bool {
		polled, err := c.Poll(first.TaskID)
		return err == nil && !polled.Pending()
	}, time.Second, 5*time.Millisecond)

	storeQueries := store.queries()
	genCalls := gen.generateCalls()

	// A later identical submission is served from the in-flight cache with
	// no new store lookup or generation.
	second, err := c.Submit(context.Background(), "alice", "q", "")
	require.NoError(t, err)
	assert.False(t, second.Pending())
	assert.Equal(t, "the answer", second.Text)
	assert.Equal(t, storeQueries, store.queries())
	assert.Equal(t, genCalls, gen.generateCalls())
}

func TestConcurrentDuplicatesProceedIndependently(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{blockCtx: true}
	c := newTestCoordinator(t, store, gen, Config{GenerationTimeout: 50 * time.Millisecond})

	// While the first generation is still in flight, a duplicate
	// submission proceeds to its own generation instead of blocking.
	first, err := c.Submit(context.Background(), "alice", "q", "")
	require.NoError(t, err)
	second, err := c.Submit(context.Background(), "alice", "q", "")
	require.NoError(t, err)

	assert.True(t, first.Pending())
	assert.True(t, second.Pending())
	assert.NotEqual(t, first.TaskID, second.TaskID)
	assert.Equal(t, 2, store.queries())
}

func TestSubmit_AfterClose(t *testing.T) {
	c, err := New(&fakeStore{}, &fakeGenerator{answer: "a"}, Config{}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Submit(context.Background(), "alice", "q", "")
	assert.ErrorIs(t, err, ErrShuttingDown)
}
