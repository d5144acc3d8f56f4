package runtime

import (
	"iter"
	"slices"

	"github.com/weftworks/skein/pkg/story"
)

// buffer is the ordered collection of output items produced since the
// last passage transition. Insertion normally appends; a stack of
// redirect positions lets callers inject items mid-buffer. Whatever
// mutates it, item indexes stay contiguous and equal to slice
// positions.
type buffer struct {
	items    []story.Output
	inserts  []int
	onRemove func(story.Output)
}

func newBuffer(onRemove func(story.Output)) *buffer {
	return &buffer{onRemove: onRemove}
}

// add places the item at the end of the buffer, or at the topmost
// redirect position when one is active. After an insert the topmost
// position advances by one, so consecutive adds land in document
// order. (The advance also applies to items another redirect placed
// earlier; that long-observed quirk is kept as-is.)
func (b *buffer) add(o story.Output) {
	if n := len(b.inserts); n > 0 {
		at := b.inserts[n-1]
		// Stale positions clamp to the current bounds.
		if at < 0 {
			at = 0
		}
		if at > len(b.items) {
			at = len(b.items)
		}
		b.items = slices.Insert(b.items, at, o)
		b.reindexFrom(at)
		b.inserts[n-1] = at + 1
		return
	}
	o.Attrs().Index = len(b.items)
	b.items = append(b.items, o)
}

// remove deletes the item by identity and notifies onRemove. Removing
// an item that is not buffered is a no-op.
func (b *buffer) remove(o story.Output) {
	for i, it := range b.items {
		if it == o {
			b.items = slices.Delete(b.items, i, i+1)
			b.reindexFrom(i)
			o.Attrs().Index = -1
			if b.onRemove != nil {
				b.onRemove(o)
			}
			return
		}
	}
}

func (b *buffer) reindexFrom(i int) {
	for j := i; j < len(b.items); j++ {
		b.items[j].Attrs().Index = j
	}
}

// beginInsert pushes a redirect position.
func (b *buffer) beginInsert(index int) {
	if index < 0 {
		index = 0
	}
	if index > len(b.items) {
		index = len(b.items)
	}
	b.inserts = append(b.inserts, index)
}

// endInsert pops the topmost redirect. Unbalanced calls are a
// programmer error.
func (b *buffer) endInsert() {
	if len(b.inserts) == 0 {
		panic("skein: EndInsert without matching BeginInsert")
	}
	b.inserts = b.inserts[:len(b.inserts)-1]
}

func (b *buffer) len() int { return len(b.items) }

func (b *buffer) at(i int) (story.Output, bool) {
	if i < 0 || i >= len(b.items) {
		return nil, false
	}
	return b.items[i], true
}

func (b *buffer) snapshot() []story.Output {
	return slices.Clone(b.items)
}

func (b *buffer) contains(o story.Output) bool {
	return slices.Contains(b.items, o)
}

// markers iterates the passage markers currently buffered. Reverse
// order walks newest entry first, which is how cue scoping looks for
// the most recently entered passage.
func (b *buffer) markers(reverse bool) iter.Seq[*story.PassageMarker] {
	return func(yield func(*story.PassageMarker) bool) {
		if reverse {
			for i := len(b.items) - 1; i >= 0; i-- {
				if m, ok := b.items[i].(*story.PassageMarker); ok {
					if !yield(m) {
						return
					}
				}
			}
			return
		}
		for _, it := range b.items {
			if m, ok := it.(*story.PassageMarker); ok {
				if !yield(m) {
					return
				}
			}
		}
	}
}

// reset drops everything without removal notifications; passage
// transitions are wholesale, not item-by-item.
func (b *buffer) reset() {
	b.items = nil
	b.inserts = nil
}
