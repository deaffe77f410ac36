package workspace

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozercan/disclosure-ui/apimodels"
)

type call struct {
	req  apimodels.QuestionRequest
	resp chan result
}

type result struct {
	resp *apimodels.QuestionResponse
	err  error
}

// fakeGenerator blocks every call until the test answers it.
type fakeGenerator struct {
	calls chan call
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{calls: make(chan call, 4)}
}

func (f *fakeGenerator) GenerateAnswer(ctx context.Context, req apimodels.QuestionRequest) (*apimodels.QuestionResponse, error) {
	c := call{req: req, resp: make(chan result, 1)}
	f.calls <- c
	r := <-c.resp
	return r.resp, r.err
}

func (f *fakeGenerator) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for GenerateAnswer")
		return call{}
	}
}

type staticGenerator struct {
	resp *apimodels.QuestionResponse
	err  error
}

func (s staticGenerator) GenerateAnswer(ctx context.Context, req apimodels.QuestionRequest) (*apimodels.QuestionResponse, error) {
	return s.resp, s.err
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for generation to resolve")
	}
}

func q(text string) *apimodels.Question {
	return &apimodels.Question{Question: text}
}

func TestNoQuestionSelected(t *testing.T) {
	w := New(staticGenerator{}, nil)

	v := w.View()
	assert.False(t, v.HasQuestion)
	assert.False(t, v.CanGenerate)
	assert.Equal(t, Idle, v.State)

	_, _, err := w.Begin()
	assert.ErrorIs(t, err, ErrNoQuestion)
	assert.ErrorIs(t, w.Generate(context.Background()), ErrNoQuestion)
	assert.ErrorIs(t, w.Edit("draft"), ErrNoQuestion)
}

func TestGenerateSuccess(t *testing.T) {
	w := New(staticGenerator{resp: &apimodels.QuestionResponse{
		Question:       "Q1",
		Answer:         "Scope 1 emissions were 1,200 tCO2e.",
		ProcessingTime: 3.25,
	}}, nil)
	w.Select(q("Q1"))

	require.NoError(t, w.Generate(context.Background()))

	v := w.View()
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, "Scope 1 emissions were 1,200 tCO2e.", v.Answer)
	assert.Equal(t, 3.25, v.ProcessingTime)
	assert.Empty(t, v.Error)
	assert.True(t, v.CanGenerate)
}

func TestGenerateFailureShowsGenericMessage(t *testing.T) {
	var logs bytes.Buffer
	backendErr := errors.New("dial tcp 127.0.0.1:8001: connection refused")
	w := New(staticGenerator{err: backendErr}, slog.New(slog.NewJSONHandler(&logs, nil)))
	w.Select(q("Q1"))

	err := w.Generate(context.Background())
	assert.ErrorIs(t, err, backendErr)

	v := w.View()
	assert.Equal(t, Failed, v.State)
	assert.Equal(t, FailureMessage, v.Error)
	assert.NotContains(t, v.Error, "connection refused")
	assert.Contains(t, logs.String(), "connection refused")
	assert.True(t, v.CanGenerate, "a failed generation can be retried")
}

func TestBeginSendsDefaults(t *testing.T) {
	w := New(staticGenerator{}, nil)
	w.Select(q("Q1"))

	ticket, req, err := w.Begin()
	require.NoError(t, err)
	assert.Equal(t, "Q1", ticket.Question())
	assert.Equal(t, "Q1", req.Question)
	assert.Equal(t, 2024, *req.Year)
	assert.True(t, *req.IncludeSQL)
	assert.True(t, *req.IncludeReasoning)
	assert.Equal(t, Loading, w.State())
	assert.False(t, w.View().CanGenerate)
}

func TestSecondGenerateWhileLoadingIsIgnored(t *testing.T) {
	gen := newFakeGenerator()
	w := New(gen, nil)
	w.Select(q("Q1"))

	done, err := w.GenerateAsync(context.Background())
	require.NoError(t, err)
	first := gen.next(t)

	_, err = w.GenerateAsync(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Len(t, gen.calls, 0, "no second backend call")

	first.resp <- result{resp: &apimodels.QuestionResponse{Answer: "A1", ProcessingTime: 1}}
	waitDone(t, done)
	assert.Equal(t, Ready, w.State())
}

func TestReselectDuringLoadingDropsStaleResponse(t *testing.T) {
	gen := newFakeGenerator()
	w := New(gen, nil)
	w.Select(q("Q1"))

	done, err := w.GenerateAsync(context.Background())
	require.NoError(t, err)
	stale := gen.next(t)
	assert.Equal(t, "Q1", stale.req.Question)

	w.Select(q("Q2"))
	v := w.View()
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, "Q2", v.Question)
	assert.True(t, v.CanGenerate)

	stale.resp <- result{resp: &apimodels.QuestionResponse{Question: "Q1", Answer: "answer for Q1"}}
	waitDone(t, done)

	v = w.View()
	assert.Equal(t, Idle, v.State)
	assert.Empty(t, v.Answer)
	assert.Equal(t, "Q2", v.Question)
}

func TestStaleResponseAfterNewRequestStarted(t *testing.T) {
	gen := newFakeGenerator()
	w := New(gen, nil)
	w.Select(q("Q1"))

	staleDone, err := w.GenerateAsync(context.Background())
	require.NoError(t, err)
	stale := gen.next(t)

	w.Select(q("Q2"))
	freshDone, err := w.GenerateAsync(context.Background())
	require.NoError(t, err)
	fresh := gen.next(t)

	stale.resp <- result{resp: &apimodels.QuestionResponse{Answer: "answer for Q1"}}
	waitDone(t, staleDone)
	assert.Equal(t, Loading, w.State(), "stale response must not resolve the new request")

	fresh.resp <- result{resp: &apimodels.QuestionResponse{Answer: "answer for Q2"}}
	waitDone(t, freshDone)
	assert.Equal(t, "answer for Q2", w.View().Answer)
}

func TestStaleFailureIsDropped(t *testing.T) {
	w := New(staticGenerator{}, nil)
	w.Select(q("Q1"))
	ticket, _, err := w.Begin()
	require.NoError(t, err)

	w.Select(q("Q2"))
	assert.False(t, w.Resolve(ticket, nil, errors.New("timeout")))
	assert.Equal(t, Idle, w.State())
	assert.Empty(t, w.View().Error)
}

// The workspace resets on every Select; repeat clicks on the current
// question are filtered out by the shell before they get here.
func TestSelectAlwaysResets(t *testing.T) {
	w := New(staticGenerator{resp: &apimodels.QuestionResponse{Answer: "A"}}, nil)
	w.Select(q("Q1"))
	require.NoError(t, w.Generate(context.Background()))

	w.Select(q("Q1"))
	v := w.View()
	assert.Equal(t, Idle, v.State)
	assert.Empty(t, v.Answer)
	assert.Zero(t, v.ProcessingTime)
}

func TestRegenerateFromReadyAndFailed(t *testing.T) {
	gen := newFakeGenerator()
	w := New(gen, nil)
	w.Select(q("Q1"))

	done, err := w.GenerateAsync(context.Background())
	require.NoError(t, err)
	gen.next(t).resp <- result{err: errors.New("boom")}
	waitDone(t, done)
	assert.Equal(t, Failed, w.State())

	done, err = w.GenerateAsync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, w.View().Error, "starting again clears the error")
	gen.next(t).resp <- result{resp: &apimodels.QuestionResponse{Answer: "first"}}
	waitDone(t, done)
	assert.Equal(t, Ready, w.State())

	done, err = w.GenerateAsync(context.Background())
	require.NoError(t, err)
	gen.next(t).resp <- result{resp: &apimodels.QuestionResponse{Answer: "second"}}
	waitDone(t, done)
	assert.Equal(t, "second", w.View().Answer)
}

func TestEditIsLocal(t *testing.T) {
	w := New(staticGenerator{resp: &apimodels.QuestionResponse{Answer: "generated"}}, nil)
	w.Select(q("Q1"))
	require.NoError(t, w.Generate(context.Background()))

	require.NoError(t, w.Edit("generated, then edited"))
	v := w.View()
	assert.Equal(t, "generated, then edited", v.Answer)
	assert.Equal(t, Ready, v.State)

	w.Select(q("Q2"))
	assert.Empty(t, w.View().Answer)
}

func TestNilResponseIsFailure(t *testing.T) {
	w := New(staticGenerator{}, nil)
	w.Select(q("Q1"))
	require.NoError(t, w.Generate(context.Background()))
	assert.Equal(t, Failed, w.State())
}

func TestConcurrentSelectAndResolve(t *testing.T) {
	w := New(staticGenerator{resp: &apimodels.QuestionResponse{Answer: "A"}}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w.Select(q("Q"))
		}()
		go func() {
			defer wg.Done()
			_ = w.Generate(context.Background())
		}()
	}
	wg.Wait()

	v := w.View()
	assert.Contains(t, []State{Idle, Ready}, v.State)
	if v.State == Idle {
		assert.Empty(t, v.Answer)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}
