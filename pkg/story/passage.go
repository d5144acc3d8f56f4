package story

import "slices"

// Passage is a named node of the story graph. Passages are immutable
// once the deck is built.
type Passage struct {
	Name string
	Tags []string
	Body Body
}

// Play invokes the passage body. A nil body plays as an empty thread.
func (p *Passage) Play(t Teller, args ...any) Thread {
	if p.Body == nil {
		return Emit()
	}
	return p.Body(t, args...)
}

// HasTag reports whether the passage carries the tag.
func (p *Passage) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}
