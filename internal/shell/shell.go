package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sozercan/disclosure-ui/apimodels"
	"github.com/sozercan/disclosure-ui/internal/navigator"
	"github.com/sozercan/disclosure-ui/internal/workspace"
)

var (
	ErrCategoriesLoading = errors.New("categories are still loading")
	ErrUnknownQuestion   = errors.New("unknown question")
)

// Client is the subset of the disclosure backend the shell drives.
type Client interface {
	ListCategories(ctx context.Context) ([]apimodels.Category, error)
	workspace.AnswerGenerator
}

// Shell owns the application-level state: the catalog, whether it is still
// loading, and the selected question. It feeds the navigator and workspace.
type Shell struct {
	mu     sync.RWMutex
	client Client
	log    *slog.Logger
	once   sync.Once
	loaded chan struct{}

	categories []apimodels.Category
	loading    bool
	loadErr    error
	selected   *apimodels.Question

	navigator *navigator.Navigator
	workspace *workspace.Workspace
}

func New(client Client, log *slog.Logger) *Shell {
	if log == nil {
		log = slog.Default()
	}
	s := &Shell{
		client:  client,
		log:     log.With("component", "shell"),
		loading: true,
		loaded:  make(chan struct{}),
	}
	s.navigator = navigator.New(s.onSelect)
	s.workspace = workspace.New(client, log)
	return s
}

// Start fetches the catalog in the background. Only the first call has any
// effect.
func (s *Shell) Start(ctx context.Context) {
	s.once.Do(func() {
		go s.load(ctx)
	})
}

// Load fetches the catalog and blocks until it is done. Like Start, only
// the first call issues a request; later calls wait for that one.
func (s *Shell) Load(ctx context.Context) error {
	s.once.Do(func() {
		s.load(ctx)
	})
	select {
	case <-s.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.LoadErr()
}

// Done is closed once the catalog request has finished, successfully or not.
func (s *Shell) Done() <-chan struct{} {
	return s.loaded
}

func (s *Shell) load(ctx context.Context) {
	defer close(s.loaded)

	categories, err := s.client.ListCategories(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// The navigator keeps showing its loading indicator; a reload is the
		// only way out.
		s.loadErr = fmt.Errorf("loading categories: %w", err)
		s.log.Error("Error loading categories", "error", err)
		return
	}
	s.categories = categories
	s.loading = false
	s.log.Info("categories loaded", "count", len(categories))
}

func (s *Shell) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Shell) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Categories returns the catalog. The slice is shared and must not be
// modified.
func (s *Shell) Categories() []apimodels.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories
}

func (s *Shell) Selected() *apimodels.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	q := *s.selected
	return &q
}

func (s *Shell) Workspace() *workspace.Workspace {
	return s.workspace
}

func (s *Shell) ToggleCategory(name string) (bool, error) {
	if s.Loading() {
		return false, ErrCategoriesLoading
	}
	return s.navigator.Toggle(name), nil
}

// SelectQuestion selects q through the navigator. q must be part of the
// catalog.
func (s *Shell) SelectQuestion(q apimodels.Question) error {
	if s.Loading() {
		return ErrCategoriesLoading
	}
	for _, c := range s.Categories() {
		for _, candidate := range c.Questions {
			if candidate.Question == q.Question {
				s.navigator.Select(candidate)
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownQuestion, q.Question)
}

// SelectAt selects the index-th question of the named category.
func (s *Shell) SelectAt(category string, index int) error {
	if s.Loading() {
		return ErrCategoriesLoading
	}
	for _, c := range s.Categories() {
		if c.Name != category {
			continue
		}
		if index < 0 || index >= len(c.Questions) {
			break
		}
		s.navigator.Select(c.Questions[index])
		return nil
	}
	return fmt.Errorf("%w: %s[%d]", ErrUnknownQuestion, category, index)
}

// onSelect hands a newly selected question to the workspace. Clicking the
// question that is already selected changes nothing, so a generated answer,
// local edits and any in-flight request stay current.
func (s *Shell) onSelect(q apimodels.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != nil && s.selected.Question == q.Question {
		return
	}
	s.selected = &q
	s.workspace.Select(&q)
	s.log.Debug("question selected", "question", q.Question)
}

type View struct {
	Navigator navigator.View `json:"navigator"`
	Workspace workspace.View `json:"workspace"`
}

func (s *Shell) View() View {
	s.mu.RLock()
	categories, selected, loading := s.categories, s.selected, s.loading
	s.mu.RUnlock()

	return View{
		Navigator: s.navigator.View(categories, selected, loading),
		Workspace: s.workspace.View(),
	}
}
