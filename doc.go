/*
Package skein is a passage-graph playback engine for interactive
narrative: branching fiction, dialogue trees, tutorial flows and other
link-driven content.

It separates the story definition (a deck of passages) from playback
(a state machine over an ordered, mutable output buffer) and from the
host (whatever renders the output and feeds choices back in). The
engine manages navigation, lazy thread flattening, style scoping and
lifecycle cues, while the host manages I/O. This keeps Skein equally
at home in a terminal player, an HTTP service, or an agent tool
server.

# Concept

A deck maps passage names to passage bodies. Playing a passage yields
a lazy, finite sequence of output items: text, line breaks, links,
style boundaries, embeds of other passages. Items accumulate in an
output buffer the host reads; links in the buffer are the choices on
offer. Following a link runs its action, then navigates. Hosts attach
cue handlers to passage names to run code on enter, exit, output and
completion.

# Key Features

  - Lazy playback: passage bodies are pulled, not pushed, so a pause
    holds its exact position and an abort skips unreached embeds.
  - Mutable output: the buffer supports removal and mid-buffer
    insertion, for hosts that rewrite previously shown content.
  - Convention-based cues: handlers named "passage_Enter",
    "passage_Output" and friends are discovered automatically.
  - Single-threaded by contract: hosts serialize calls; the engine
    never starts goroutines of its own except for scheduled cue
    follow-ups.

# Usage

Build a deck, wrap it in a story, begin, and loop on the links:

	package main

	import (
		"fmt"
		"log"

		"github.com/weftworks/skein"
		"github.com/weftworks/skein/pkg/deck"
	)

	func main() {
		b := deck.NewBuilder()
		b.Passage("porch").
			Text("The porch light hums.").
			Link("Knock", "door")
		b.Passage("door").
			Text("No one answers.")

		d, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		st, err := skein.New(d)
		if err != nil {
			log.Fatal(err)
		}
		if err := st.Begin(); err != nil {
			log.Fatal(err)
		}

		for _, o := range st.Output() {
			fmt.Print(o)
		}
		for _, l := range st.Links() {
			fmt.Printf("[%s] ", l.Name)
		}

		// In a real host the choice comes from the player.
		if err := st.FollowLinkNamed("Knock"); err != nil {
			log.Fatal(err)
		}
	}
*/
package skein
