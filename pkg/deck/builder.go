package deck

import (
	"errors"
	"fmt"
	"slices"

	"github.com/weftworks/skein/pkg/story"
)

// Builder assembles a deck through a fluent API. Errors accumulate
// and surface from Build.
type Builder struct {
	passages []*PassageBuilder
	byName   map[string]*PassageBuilder
	start    string
	errs     []error
}

// NewBuilder creates an empty deck builder.
func NewBuilder() *Builder {
	return &Builder{byName: make(map[string]*PassageBuilder)}
}

// Start names the passage playback begins at. Defaults to the first
// passage defined.
func (b *Builder) Start(name string) *Builder {
	b.start = name
	return b
}

// Passage starts (or resumes) defining a passage.
func (b *Builder) Passage(name string) *PassageBuilder {
	if pb, ok := b.byName[name]; ok {
		return pb
	}
	pb := &PassageBuilder{builder: b, name: name}
	b.byName[name] = pb
	b.passages = append(b.passages, pb)
	return pb
}

// Build compiles the deck. The start passage defaults to the first
// one defined; a missing or dangling start is an error.
func (b *Builder) Build() (*Deck, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	d := New()
	for _, pb := range b.passages {
		if err := d.Add(pb.build()); err != nil {
			return nil, fmt.Errorf("failed to build deck: %w", err)
		}
	}
	start := b.start
	if start == "" && len(b.passages) > 0 {
		start = b.passages[0].name
	}
	if start != "" {
		if err := d.SetStart(start); err != nil {
			return nil, fmt.Errorf("start passage: %w", err)
		}
	}
	return d, nil
}

// step emits zero or more outputs when the passage thread reaches it.
// Returning false stops the thread.
type step func(t story.Teller, yield func(story.Output) bool) bool

// PassageBuilder provides a fluent API for one passage.
type PassageBuilder struct {
	builder *Builder
	name    string
	tags    []string
	steps   []step
	body    story.Body
}

// Tags attaches tags to the passage.
func (p *PassageBuilder) Tags(tags ...string) *PassageBuilder {
	p.tags = append(p.tags, tags...)
	return p
}

// Text appends a text item.
func (p *PassageBuilder) Text(content string) *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		return yield(story.NewText(content))
	})
}

// Textf appends a formatted text item.
func (p *PassageBuilder) Textf(format string, args ...any) *PassageBuilder {
	return p.Text(fmt.Sprintf(format, args...))
}

// Line appends a line break.
func (p *PassageBuilder) Line() *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		return yield(story.NewLineBreak())
	})
}

// Link appends a link that navigates to the target passage.
func (p *PassageBuilder) Link(name, target string) *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		return yield(story.NewLink(name, target))
	})
}

// Action appends a link that runs fn instead of navigating.
func (p *PassageBuilder) Action(name string, fn story.ActionFunc) *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		return yield(story.NewActionLink(name, fn))
	})
}

// ActionLink appends a link that runs fn and then navigates to the
// target passage.
func (p *PassageBuilder) ActionLink(name, target string, fn story.ActionFunc) *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		return yield(story.NewLinkWithAction(name, target, fn))
	})
}

// Embed pulls the named passage into this one at play time.
func (p *PassageBuilder) Embed(passage string, args ...any) *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		return yield(story.NewEmbedPassage(passage, args...))
	})
}

// Fragment pulls an anonymous thread into this one at play time.
func (p *PassageBuilder) Fragment(fn func(t story.Teller) story.Thread) *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		return yield(story.NewEmbedFragment(fn))
	})
}

// Styled wraps the steps defined by fn in a style scope. The scope
// opens when playback reaches the first wrapped step and closes after
// the last, so the closing is guaranteed to pair with the opening.
func (p *PassageBuilder) Styled(s story.Style, fn func(p *PassageBuilder)) *PassageBuilder {
	inner := &PassageBuilder{builder: p.builder, name: p.name}
	fn(inner)
	wrapped := slices.Clone(inner.steps)
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		scope := t.ApplyStyle(s)
		defer scope.Close()
		for _, st := range wrapped {
			if !st(t, yield) {
				return false
			}
		}
		return true
	})
}

// Abort ends the passage thread early. A non-empty target navigates
// there once the thread is finalized.
func (p *PassageBuilder) Abort(target string) *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		yield(story.NewAbort(target))
		return false
	})
}

// Do appends a step that yields whatever items fn produces. fn runs
// once per playthrough, so items are created fresh each time.
func (p *PassageBuilder) Do(fn func(t story.Teller) []story.Output) *PassageBuilder {
	return p.step(func(t story.Teller, yield func(story.Output) bool) bool {
		for _, o := range fn(t) {
			if !yield(o) {
				return false
			}
		}
		return true
	})
}

// Body sets a custom passage body. Bodies and steps cannot mix.
func (p *PassageBuilder) Body(fn story.Body) *PassageBuilder {
	if len(p.steps) > 0 {
		p.builder.errs = append(p.builder.errs,
			fmt.Errorf("passage %q: cannot mix steps with a custom body", p.name))
		return p
	}
	p.body = fn
	return p
}

func (p *PassageBuilder) step(s step) *PassageBuilder {
	if p.body != nil {
		p.builder.errs = append(p.builder.errs,
			fmt.Errorf("passage %q: cannot mix steps with a custom body", p.name))
		return p
	}
	p.steps = append(p.steps, s)
	return p
}

// build compiles the passage. Step-built passages get a body that
// yields fresh items on every entry; threads stay lazy and
// single-use.
func (p *PassageBuilder) build() *story.Passage {
	body := p.body
	if body == nil {
		steps := slices.Clone(p.steps)
		body = func(t story.Teller, _ ...any) story.Thread {
			return func(yield func(story.Output) bool) {
				for _, st := range steps {
					if !st(t, yield) {
						return
					}
				}
			}
		}
	}
	return &story.Passage{Name: p.name, Tags: slices.Clone(p.tags), Body: body}
}
