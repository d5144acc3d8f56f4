package story

// Observers defines callbacks for playback observability. All fields
// are optional. An engine holds any number of Observers values and
// notifies them in registration order, synchronously, on its own
// goroutine.
type Observers struct {
	// PassageEntered fires after a passage becomes current, before
	// its thread produces output.
	PassageEntered func(p *Passage)

	// StateChanged fires only when the state actually changes value.
	StateChanged func(s State)

	// OutputAdded fires after an item lands in the output buffer,
	// already stamped with index, style and embed provenance.
	OutputAdded func(o Output)

	// OutputRemoved fires after an item is removed from the buffer.
	// Wholesale clears on passage transitions do not fire it.
	OutputRemoved func(o Output)
}
