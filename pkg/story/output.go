package story

import (
	"fmt"
	"strings"
)

// Output is implemented by every item a passage can produce.
// Concrete items are always handled by pointer; the playback engine
// relies on pointer identity for buffer removal.
type Output interface {
	// Attrs exposes the engine bookkeeping shared by all items.
	Attrs() *Item
	fmt.Stringer
}

// Item carries the bookkeeping the engine maintains for each output:
// its position in the output buffer, the style composed at the moment
// it was emitted, and the innermost embed it arrived through.
type Item struct {
	// Index is the position in the output buffer, -1 until added.
	Index int

	// Style is the merged style stamped when the item was emitted.
	Style Style

	// Embed points at the innermost wrapping embed, nil at top level.
	Embed Embed
}

// Attrs returns the item itself. Embedding Item gives every concrete
// output type its Output plumbing for free.
func (it *Item) Attrs() *Item { return it }

func newItem() Item { return Item{Index: -1} }

// Embed marks output items that pull further content into the current
// thread: an embedded passage or an anonymous fragment.
type Embed interface {
	Output
	embedItem()
}

// Text is a run of narrative text.
type Text struct {
	Item
	Content string
}

// NewText creates a text item.
func NewText(content string) *Text {
	return &Text{Item: newItem(), Content: content}
}

func (t *Text) String() string { return t.Content }

// LineBreak separates lines of narrative text.
type LineBreak struct {
	Item
}

// NewLineBreak creates a line break item.
func NewLineBreak() *LineBreak { return &LineBreak{Item: newItem()} }

func (*LineBreak) String() string { return "\n" }

// ActionFunc is the optional behavior attached to a link. It may
// return a thread to play before (and instead of, when it aborts or
// pauses) the link's navigation; nil means the action has no output.
type ActionFunc func(t Teller) Thread

// Link is a choice offered to the host. At least one of Target or
// Action must be set for the link to be followable.
type Link struct {
	Item
	Name   string
	Target string
	Action ActionFunc
}

// NewLink creates a link that navigates to the target passage.
func NewLink(name, target string) *Link {
	return &Link{Item: newItem(), Name: name, Target: target}
}

// NewActionLink creates a link that only runs an action.
func NewActionLink(name string, action ActionFunc) *Link {
	return &Link{Item: newItem(), Name: name, Action: action}
}

// NewLinkWithAction creates a link that runs an action and then
// navigates to the target passage.
func NewLinkWithAction(name, target string, action ActionFunc) *Link {
	return &Link{Item: newItem(), Name: name, Target: target, Action: action}
}

func (l *Link) String() string { return "[[" + l.Name + "]]" }

// PassageMarker delimits the cue scope of a passage inside the output
// buffer. One is emitted for every passage entry, top-level or
// embedded.
type PassageMarker struct {
	Item
	Passage *Passage
}

// NewPassageMarker creates a marker for the given passage.
func NewPassageMarker(p *Passage) *PassageMarker {
	return &PassageMarker{Item: newItem(), Passage: p}
}

func (m *PassageMarker) String() string {
	if m.Passage == nil {
		return "(passage)"
	}
	return "(passage: " + m.Passage.Name + ")"
}

// TagKind distinguishes the opening and closing halves of a style
// scope in the output buffer.
type TagKind string

const (
	OpenTag  TagKind = "open"
	CloseTag TagKind = "close"
)

// StyleTag records a style scope boundary. Tags are only emitted when
// style-tag output is enabled on the engine.
type StyleTag struct {
	Item
	Kind TagKind

	// Applied is the style of the scope this tag opens or closes,
	// not the composed style stamped on Item.
	Applied Style
}

// NewStyleTag creates a style boundary tag.
func NewStyleTag(kind TagKind, applied Style) *StyleTag {
	return &StyleTag{Item: newItem(), Kind: kind, Applied: applied}
}

func (t *StyleTag) String() string {
	names := make([]string, 0, len(t.Applied))
	for name := range t.Applied {
		names = append(names, name)
	}
	if t.Kind == CloseTag {
		return "</" + strings.Join(names, ",") + ">"
	}
	return "<" + strings.Join(names, ",") + ">"
}

// EmbedPassage pulls a named passage into the current thread. The
// flattener resolves the name against the deck when the item is
// reached, passing Args to the passage body.
type EmbedPassage struct {
	Item
	Name string
	Args []any
}

// NewEmbedPassage creates an embed of the named passage.
func NewEmbedPassage(name string, args ...any) *EmbedPassage {
	return &EmbedPassage{Item: newItem(), Name: name, Args: args}
}

func (e *EmbedPassage) String() string { return "{embed: " + e.Name + "}" }

func (*EmbedPassage) embedItem() {}

// EmbedFragment pulls an anonymous sub-thread into the current
// thread. Unlike EmbedPassage it emits no PassageMarker and opens no
// cue scope.
type EmbedFragment struct {
	Item
	Fragment func(t Teller) Thread
}

// NewEmbedFragment creates an embed of an anonymous thread.
func NewEmbedFragment(fragment func(t Teller) Thread) *EmbedFragment {
	return &EmbedFragment{Item: newItem(), Fragment: fragment}
}

func (*EmbedFragment) String() string { return "{fragment}" }

func (*EmbedFragment) embedItem() {}

// Abort ends the current thread early. It is pure control flow: the
// engine consumes it without adding it to the output buffer. A
// non-empty Target navigates there after the thread is finalized.
type Abort struct {
	Item
	Target string
}

// NewAbort creates an abort item. An empty target stops playback
// without navigating.
func NewAbort(target string) *Abort {
	return &Abort{Item: newItem(), Target: target}
}

func (a *Abort) String() string {
	if a.Target == "" {
		return "(abort)"
	}
	return "(abort -> " + a.Target + ")"
}
