// Package deck holds the passages of a story and a fluent builder for
// defining them in code. A deck is immutable once handed to an
// engine.
package deck

import (
	"fmt"
	"slices"

	"github.com/weftworks/skein/pkg/story"
)

// Deck is an ordered registry of passages plus the name of the
// passage playback begins at.
type Deck struct {
	passages map[string]*story.Passage
	order    []string
	start    string
}

// New creates an empty deck.
func New() *Deck {
	return &Deck{passages: make(map[string]*story.Passage)}
}

// Add registers a passage. Names are unique.
func (d *Deck) Add(p *story.Passage) error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("passage must have a name")
	}
	if _, exists := d.passages[p.Name]; exists {
		return fmt.Errorf("passage %q already defined", p.Name)
	}
	d.passages[p.Name] = p
	d.order = append(d.order, p.Name)
	return nil
}

// Passage looks up a passage by name.
func (d *Deck) Passage(name string) (*story.Passage, bool) {
	p, ok := d.passages[name]
	return p, ok
}

// Passages returns the passages in definition order.
func (d *Deck) Passages() []*story.Passage {
	ps := make([]*story.Passage, 0, len(d.order))
	for _, name := range d.order {
		ps = append(ps, d.passages[name])
	}
	return ps
}

// Names returns the passage names in definition order.
func (d *Deck) Names() []string {
	return slices.Clone(d.order)
}

// Len returns the number of passages.
func (d *Deck) Len() int { return len(d.order) }

// Start returns the configured start passage name, empty if unset.
func (d *Deck) Start() string { return d.start }

// SetStart configures the passage Begin navigates to.
func (d *Deck) SetStart(name string) error {
	if _, ok := d.passages[name]; !ok {
		return &story.NotFoundError{Kind: "passage", Name: name}
	}
	d.start = name
	return nil
}
