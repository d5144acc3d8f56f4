package cue

import (
	"fmt"
	"unicode"

	"github.com/weftworks/skein/pkg/story"
)

// Target is a named bag of cue handlers, typically one per host
// component. Handlers are bound either explicitly to a (passage,
// kind) key or into the convention pool under a "Passage_Kind" name.
type Target struct {
	name     string
	explicit map[key]*handler
	named    map[string]*handler
}

type key struct {
	passage string
	kind    Kind
}

// NewTarget creates an empty target.
func NewTarget(name string) *Target {
	return &Target{
		name:     name,
		explicit: make(map[key]*handler),
		named:    make(map[string]*handler),
	}
}

// Name returns the target's name.
func (t *Target) Name() string { return t.name }

// Bind attaches fn to the exact (passage, kind) key, overriding any
// convention-named handler for that key. fn must use one of the
// supported handler signatures.
func (t *Target) Bind(passage string, kind Kind, fn any) error {
	h, err := newHandler(fn)
	if err != nil {
		return fmt.Errorf("bind %s/%s: %w", passage, kind, err)
	}
	t.explicit[key{passage, kind}] = h
	return nil
}

// MustBind is Bind that panics on an unsupported handler signature.
// It returns the target for chained setup.
func (t *Target) MustBind(passage string, kind Kind, fn any) *Target {
	if err := t.Bind(passage, kind, fn); err != nil {
		panic(err)
	}
	return t
}

// BindName adds fn to the convention pool. A handler named
// "Cellar_Enter" is discovered for the Enter cue of passage "Cellar",
// provided the passage name is a valid identifier.
func (t *Target) BindName(handlerName string, fn any) error {
	h, err := newHandler(fn)
	if err != nil {
		return fmt.Errorf("bind %s: %w", handlerName, err)
	}
	t.named[handlerName] = h
	return nil
}

// MustBindName is BindName that panics on an unsupported signature.
func (t *Target) MustBindName(handlerName string, fn any) *Target {
	if err := t.BindName(handlerName, fn); err != nil {
		panic(err)
	}
	return t
}

// find resolves the handler for a key: explicit binding first, then
// the convention pool when the passage name can form a handler name.
func (t *Target) find(passage string, kind Kind) *handler {
	if h, ok := t.explicit[key{passage, kind}]; ok {
		return h
	}
	if !validIdent(passage) {
		return nil
	}
	return t.named[passage+"_"+string(kind)]
}

// validIdent reports whether the name follows identifier syntax:
// letter or underscore first, letters, digits and underscores after.
// Passage names that fail it (spaces, punctuation) can still receive
// cues through explicit bindings.
func validIdent(name string) bool {
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return name != ""
}

// handler wraps one of the supported cue signatures:
//
//	func()                      func() Op
//	func(o story.Output)        func(o story.Output) Op
//	func(l *story.Link)         func(l *story.Link) Op
type handler struct {
	async bool
	fn    any
}

func newHandler(fn any) (*handler, error) {
	switch fn.(type) {
	case func(), func(story.Output), func(*story.Link):
		return &handler{fn: fn}, nil
	case func() Op, func(story.Output) Op, func(*story.Link) Op:
		return &handler{async: true, fn: fn}, nil
	default:
		return nil, fmt.Errorf("unsupported cue handler signature %T", fn)
	}
}

// call invokes the handler with the dispatch arguments. A mismatch
// between the handler's parameter and the arguments is reported as an
// error so dispatch can skip the handler and continue.
func (h *handler) call(args []any) (Op, error) {
	switch f := h.fn.(type) {
	case func():
		if len(args) != 0 {
			return nil, argMismatch(0, args)
		}
		f()
		return nil, nil
	case func() Op:
		if len(args) != 0 {
			return nil, argMismatch(0, args)
		}
		return f(), nil
	case func(story.Output):
		o, err := outputArg(args)
		if err != nil {
			return nil, err
		}
		f(o)
		return nil, nil
	case func(story.Output) Op:
		o, err := outputArg(args)
		if err != nil {
			return nil, err
		}
		return f(o), nil
	case func(*story.Link):
		l, err := linkArg(args)
		if err != nil {
			return nil, err
		}
		f(l)
		return nil, nil
	case func(*story.Link) Op:
		l, err := linkArg(args)
		if err != nil {
			return nil, err
		}
		return f(l), nil
	}
	return nil, fmt.Errorf("unsupported cue handler signature %T", h.fn)
}

func argMismatch(want int, args []any) error {
	return fmt.Errorf("handler takes %d arguments, dispatch supplied %d", want, len(args))
}

func outputArg(args []any) (story.Output, error) {
	if len(args) != 1 {
		return nil, argMismatch(1, args)
	}
	o, ok := args[0].(story.Output)
	if !ok {
		return nil, fmt.Errorf("handler takes a story.Output, dispatch supplied %T", args[0])
	}
	return o, nil
}

func linkArg(args []any) (*story.Link, error) {
	if len(args) != 1 {
		return nil, argMismatch(1, args)
	}
	l, ok := args[0].(*story.Link)
	if !ok {
		return nil, fmt.Errorf("handler takes a *story.Link, dispatch supplied %T", args[0])
	}
	return l, nil
}
