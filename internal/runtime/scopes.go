package runtime

import (
	"maps"
	"slices"

	"github.com/weftworks/skein/pkg/story"
)

// scopeStack tracks the open style scopes and their composition. The
// composed style folds the stack bottom-to-top, so inner scopes
// override outer ones on conflicting settings.
type scopeStack struct {
	open     []*styleScope
	composed story.Style
	emitTags bool
	emit     func(story.Output)
}

func newScopeStack(emitTags bool, emit func(story.Output)) *scopeStack {
	return &scopeStack{emitTags: emitTags, emit: emit}
}

type styleScope struct {
	stack  *scopeStack
	style  story.Style
	closed bool
}

// Close removes the scope from the composition. Idempotent; closing
// out of order is trusted, not verified.
func (s *styleScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.stack.close(s)
}

// push opens a scope, recomposes, and emits an opening style tag when
// tags are enabled.
func (st *scopeStack) push(style story.Style) story.Scope {
	sc := &styleScope{stack: st, style: style}
	st.open = append(st.open, sc)
	st.recompose()
	if st.emitTags {
		st.emit(story.NewStyleTag(story.OpenTag, style))
	}
	return sc
}

func (st *scopeStack) close(sc *styleScope) {
	i := slices.Index(st.open, sc)
	if i < 0 {
		// Scope list was cleared by a passage transition; the handle
		// outlived it and there is nothing left to close.
		return
	}
	if st.emitTags {
		st.emit(story.NewStyleTag(story.CloseTag, sc.style))
	}
	st.open = slices.Delete(st.open, i, i+1)
	st.recompose()
}

func (st *scopeStack) recompose() {
	composed := story.Style{}
	for _, sc := range st.open {
		composed = composed.Merge(sc.style)
	}
	st.composed = composed
}

// current returns a copy of the composed style for stamping onto an
// output item. Items own their stamp; later scope changes must not
// reach into already-emitted output.
func (st *scopeStack) current() story.Style {
	if len(st.composed) == 0 {
		return nil
	}
	return maps.Clone(st.composed)
}

// reset drops all open scopes without emitting closing tags.
func (st *scopeStack) reset() {
	st.open = nil
	st.composed = story.Style{}
}
