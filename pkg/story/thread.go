package story

import "iter"

// Thread is a lazy, finite sequence of output items. Threads are
// non-restartable: the engine pulls each one through a single cursor
// and never iterates it twice.
type Thread = iter.Seq[Output]

// Body produces a passage's thread. It runs once per entry; the args
// come from the EmbedPassage that pulled the passage in (empty for
// top-level entries). Bodies must yield freshly created items: once
// yielded, an item belongs to the engine's output buffer.
type Body func(t Teller, args ...any) Thread

// Emit returns a thread that yields the given items in order.
func Emit(items ...Output) Thread {
	return func(yield func(Output) bool) {
		for _, o := range items {
			if !yield(o) {
				return
			}
		}
	}
}
