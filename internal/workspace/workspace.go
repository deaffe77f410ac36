// Package workspace tracks answer generation for the currently selected
// question.
//
// Every selection bumps a generation counter. A request captures the
// counter in its Ticket when it starts, and its result is applied only if
// the counter is unchanged when it resolves, so a late response for an
// abandoned question never shows up as the current answer.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sozercan/disclosure-ui/apimodels"
)

// FailureMessage is what users see when generation fails. The underlying
// error only goes to the log.
const FailureMessage = "Failed to generate answer. Please try again."

var (
	ErrNoQuestion = errors.New("no question selected")
	ErrInFlight   = errors.New("answer generation already in progress")
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AnswerGenerator is the part of the backend client the workspace needs.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, req apimodels.QuestionRequest) (*apimodels.QuestionResponse, error)
}

// Ticket identifies one generation request.
type Ticket struct {
	generation uint64
	question   string
}

func (t Ticket) Question() string { return t.question }

type Workspace struct {
	mu     sync.Mutex
	client AnswerGenerator
	log    *slog.Logger

	question       *apimodels.Question
	state          State
	answer         string
	errMsg         string
	processingTime float64
	generation     uint64
}

func New(client AnswerGenerator, log *slog.Logger) *Workspace {
	if log == nil {
		log = slog.Default()
	}
	return &Workspace{
		client: client,
		log:    log.With("component", "workspace"),
	}
}

// Select makes q the current question and resets to Idle, whatever state
// the workspace was in. Passing nil clears the selection.
func (w *Workspace) Select(q *apimodels.Question) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Loading {
		w.log.Debug("discarding in-flight answer for previous question", "generation", w.generation)
	}

	w.generation++
	if q != nil {
		copied := *q
		w.question = &copied
	} else {
		w.question = nil
	}
	w.state = Idle
	w.answer = ""
	w.errMsg = ""
	w.processingTime = 0
}

// Begin moves Idle, Ready or Failed to Loading and returns the ticket and
// request to send. A call while Loading is ignored with ErrInFlight.
func (w *Workspace) Begin() (Ticket, apimodels.QuestionRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.question == nil {
		return Ticket{}, apimodels.QuestionRequest{}, ErrNoQuestion
	}
	if w.state == Loading {
		return Ticket{}, apimodels.QuestionRequest{}, ErrInFlight
	}

	w.state = Loading
	w.errMsg = ""

	req := apimodels.QuestionRequest{
		Question:         w.question.Question,
		Year:             apimodels.Ptr(apimodels.DefaultYear),
		IncludeSQL:       apimodels.Ptr(true),
		IncludeReasoning: apimodels.Ptr(true),
	}
	return Ticket{generation: w.generation, question: w.question.Question}, req, nil
}

// Resolve applies the outcome of the request identified by t. It reports
// false when the ticket is stale and the outcome was dropped.
func (w *Workspace) Resolve(t Ticket, resp *apimodels.QuestionResponse, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t.generation != w.generation || w.state != Loading {
		w.log.Info("dropping stale answer", "question", t.question, "ticket_generation", t.generation, "current_generation", w.generation)
		return false
	}

	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		w.log.Error("answer generation failed", "question", t.question, "error", err)
		w.state = Failed
		w.errMsg = FailureMessage
		return true
	}

	w.state = Ready
	w.answer = resp.Answer
	w.processingTime = resp.ProcessingTime
	return true
}

// Generate runs one generation request to completion.
func (w *Workspace) Generate(ctx context.Context) error {
	t, req, err := w.Begin()
	if err != nil {
		return err
	}
	resp, err := w.client.GenerateAnswer(ctx, req)
	w.Resolve(t, resp, err)
	return err
}

// GenerateAsync starts a request in the background and returns once the
// workspace is Loading. The returned channel closes when the request is
// resolved, whether or not its result was still current.
func (w *Workspace) GenerateAsync(ctx context.Context) (<-chan struct{}, error) {
	t, req, err := w.Begin()
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := w.client.GenerateAnswer(ctx, req)
		w.Resolve(t, resp, err)
	}()
	return done, nil
}

// Edit replaces the local answer text. Edits are never sent anywhere.
func (w *Workspace) Edit(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.question == nil {
		return ErrNoQuestion
	}
	w.answer = text
	return nil
}

type View struct {
	HasQuestion    bool    `json:"has_question"`
	Question       string  `json:"question,omitempty"`
	State          State   `json:"state"`
	Answer         string  `json:"answer"`
	Error          string  `json:"error,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	CanGenerate    bool    `json:"can_generate"`
}

func (w *Workspace) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		HasQuestion:    w.question != nil,
		State:          w.state,
		Answer:         w.answer,
		Error:          w.errMsg,
		ProcessingTime: w.processingTime,
		CanGenerate:    w.question != nil && w.state != Loading,
	}
	if w.question != nil {
		v.Question = w.question.Question
	}
	return v
}

func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
