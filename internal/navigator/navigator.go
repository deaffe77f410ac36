// Package navigator keeps the collapsible category tree state: which
// categories are expanded, and how the tree renders for a given selection.
package navigator

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/sozercan/disclosure-ui/apimodels"
)

// SelectFunc receives the question a user picked.
type SelectFunc func(apimodels.Question)

type Navigator struct {
	mu       sync.RWMutex
	expanded map[string]struct{}
	onSelect SelectFunc
}

// New returns a navigator with every category collapsed.
func New(onSelect SelectFunc) *Navigator {
	return &Navigator{
		expanded: make(map[string]struct{}),
		onSelect: onSelect,
	}
}

// Toggle flips the expanded state of a category and reports the new state.
func (n *Navigator) Toggle(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.expanded[name]; ok {
		delete(n.expanded, name)
		return false
	}
	n.expanded[name] = struct{}{}
	return true
}

func (n *Navigator) IsExpanded(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.expanded[name]
	return ok
}

// Select hands q to the parent. The navigator itself keeps no selection;
// highlighting comes from the selection passed back into View.
func (n *Navigator) Select(q apimodels.Question) {
	if n.onSelect != nil {
		n.onSelect(q)
	}
}

type View struct {
	Loading    bool           `json:"loading"`
	Categories []CategoryView `json:"categories,omitempty"`
}

type CategoryView struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
	Expanded    bool   `json:"expanded"`

	// Questions is empty unless the category is expanded.
	Questions []QuestionView `json:"questions,omitempty"`
}

type QuestionView struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// View renders the tree. While loading, only the loading flag is set.
func (n *Navigator) View(categories []apimodels.Category, selected *apimodels.Question, loading bool) View {
	if loading {
		return View{Loading: true}
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	out := View{Categories: make([]CategoryView, 0, len(categories))}
	for _, c := range categories {
		_, expanded := n.expanded[c.Name]
		cv := CategoryView{
			Name:        c.Name,
			DisplayName: FormatCategoryName(c.Name),
			Count:       c.Count,
			Expanded:    expanded,
		}
		if expanded {
			cv.Questions = make([]QuestionView, 0, len(c.Questions))
			for i, q := range c.Questions {
				cv.Questions = append(cv.Questions, QuestionView{
					Index:    i,
					Text:     q.Question,
					Selected: selected != nil && selected.Question == q.Question,
				})
			}
		}
		out.Categories = append(out.Categories, cv)
	}
	return out
}

// FormatCategoryName turns "climate_risk" into "Climate Risk": split on
// underscores, upper-case the first rune of each part, join with spaces.
func FormatCategoryName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		if size == 0 || r == utf8.RuneError {
			continue
		}
		parts[i] = string(unicode.ToUpper(r)) + p[size:]
	}
	return strings.Join(parts, " ")
}
