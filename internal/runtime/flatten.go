package runtime

import "github.com/weftworks/skein/pkg/story"

// flatten yields a thread's items depth-first, resolving embeds as
// the pull reaches them. Every yielded item is attributed to the
// innermost embed that wraps it (wrap is nil at top level); nested
// embeds never stack into a provenance chain.
func (p *Player) flatten(t story.Thread, wrap story.Embed) story.Thread {
	return func(yield func(story.Output) bool) {
		p.flattenInto(t, wrap, yield)
	}
}

func (p *Player) flattenInto(t story.Thread, wrap story.Embed, yield func(story.Output) bool) bool {
	for o := range t {
		o.Attrs().Embed = wrap
		if !yield(o) {
			return false
		}
		switch e := o.(type) {
		case *story.EmbedPassage:
			psg, ok := p.deck.Passage(e.Name)
			if !ok {
				p.threadErr = &story.NotFoundError{Kind: "passage", Name: e.Name}
				return false
			}
			marker := story.NewPassageMarker(psg)
			marker.Attrs().Embed = e
			if !yield(marker) {
				return false
			}
			if !p.flattenInto(psg.Play(p.teller, e.Args...), e, yield) {
				return false
			}
		case *story.EmbedFragment:
			if e.Fragment == nil {
				continue
			}
			if !p.flattenInto(e.Fragment(p.teller), e, yield) {
				return false
			}
		}
	}
	return true
}
