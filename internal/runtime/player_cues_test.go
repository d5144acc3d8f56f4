package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/skein/internal/runtime"
	"github.com/weftworks/skein/pkg/cue"
	"github.com/weftworks/skein/pkg/story"
)

func TestEmbedFlatteningOrderAndProvenance(t *testing.T) {
	d := deckOf(t,
		passageOf("outer", func() []story.Output {
			return []story.Output{
				story.NewText("before"),
				story.NewEmbedPassage("inner"),
				story.NewText("after"),
			}
		}),
		textPassage("inner", "mid"),
	)
	p := runtime.NewPlayer(d)
	require.NoError(t, p.Begin())

	out := p.Output()
	require.Len(t, out, 6)

	outerMarker, ok := out[0].(*story.PassageMarker)
	require.True(t, ok)
	assert.Equal(t, "outer", outerMarker.Passage.Name)

	embed, ok := out[2].(*story.EmbedPassage)
	require.True(t, ok)

	innerMarker, ok := out[3].(*story.PassageMarker)
	require.True(t, ok)
	assert.Equal(t, "inner", innerMarker.Passage.Name)

	assert.Equal(t, []string{"before", "mid", "after"}, texts(p))

	// Top-level items carry no embed back-reference; everything the
	// embed pulled in points at it.
	assert.Nil(t, out[1].Attrs().Embed)
	assert.Nil(t, embed.Attrs().Embed)
	assert.Same(t, embed, innerMarker.Attrs().Embed)
	assert.Same(t, embed, out[4].Attrs().Embed)
	assert.Nil(t, out[5].Attrs().Embed)
}

func TestNestedEmbedsKeepInnermostProvenance(t *testing.T) {
	d := deckOf(t,
		passageOf("outer", func() []story.Output {
			return []story.Output{story.NewEmbedPassage("middle")}
		}),
		passageOf("middle", func() []story.Output {
			return []story.Output{story.NewEmbedPassage("core")}
		}),
		textPassage("core", "deep"),
	)
	p := runtime.NewPlayer(d)
	require.NoError(t, p.Begin())

	// marker(outer), embed(middle), marker(middle), embed(core),
	// marker(core), text.
	out := p.Output()
	require.Len(t, out, 6)

	embedMiddle := out[1].(*story.EmbedPassage)
	embedCore := out[3].(*story.EmbedPassage)
	deep := out[5].(*story.Text)

	assert.Same(t, embedMiddle, embedCore.Attrs().Embed, "the inner embed item belongs to the outer embed")
	assert.Same(t, embedCore, deep.Attrs().Embed, "content points at the innermost embed only")
}

func TestEmbedPassesArgs(t *testing.T) {
	var got []any
	d := deckOf(t,
		passageOf("outer", func() []story.Output {
			return []story.Output{story.NewEmbedPassage("inner", 3, "rats")}
		}),
		&story.Passage{Name: "inner", Body: func(_ story.Teller, args ...any) story.Thread {
			got = args
			return story.Emit(story.NewText("counted"))
		}},
	)
	p := runtime.NewPlayer(d)
	require.NoError(t, p.Begin())

	assert.Equal(t, []any{3, "rats"}, got)
	assert.Equal(t, []string{"counted"}, texts(p))
}

func TestEmbedsMaterializeLazily(t *testing.T) {
	innerPlayed := false
	d := deckOf(t,
		passageOf("outer", func() []story.Output {
			return []story.Output{
				story.NewText("ping"),
				story.NewEmbedPassage("inner"),
			}
		}),
		&story.Passage{Name: "inner", Body: func(story.Teller, ...any) story.Thread {
			innerPlayed = true
			return story.Emit(story.NewText("mid"))
		}},
	)
	p := runtime.NewPlayer(d)
	pauseOn(p, "outer", "ping")

	require.NoError(t, p.Begin())
	require.Equal(t, story.StatePaused, p.State())
	assert.False(t, innerPlayed, "embed resolved before the pull reached it")

	require.NoError(t, p.Resume())
	assert.True(t, innerPlayed)
	assert.Equal(t, []string{"ping", "mid"}, texts(p))
}

func TestMissingEmbedFailsPlayback(t *testing.T) {
	d := deckOf(t,
		passageOf("outer", func() []story.Output {
			return []story.Output{
				story.NewText("x"),
				story.NewEmbedPassage("ghost"),
			}
		}),
	)
	p := runtime.NewPlayer(d)

	doneCalls := 0
	tgt := cue.NewTarget("watch")
	tgt.MustBind("outer", cue.Done, func() { doneCalls++ })
	p.Cues().AddTarget(tgt)

	err := p.Begin()
	var nfe *story.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "passage", nfe.Kind)
	assert.Equal(t, "ghost", nfe.Name)

	assert.Equal(t, story.StateIdle, p.State())
	assert.Zero(t, doneCalls, "a failed thread does not finish")
	// The embed item itself was already buffered when resolution failed.
	assert.Equal(t, 3, p.OutputLen())
}

func TestEnterCuesScopedToFreshLevel(t *testing.T) {
	d := deckOf(t,
		passageOf("outer", func() []story.Output {
			return []story.Output{story.NewEmbedPassage("inner")}
		}),
		textPassage("inner", "mid"),
	)
	p := runtime.NewPlayer(d)

	var entered []string
	tgt := cue.NewTarget("watch")
	tgt.MustBind("outer", cue.Enter, func() { entered = append(entered, "outer") })
	tgt.MustBind("inner", cue.Enter, func() { entered = append(entered, "inner") })
	p.Cues().AddTarget(tgt)

	require.NoError(t, p.Begin())

	// The embedded marker re-scans the stage, but the scan stops at the
	// first level that yields cues, so outer does not fire again.
	assert.Equal(t, []string{"outer", "inner"}, entered)
}

func TestExitCuesCoverTheWholeStage(t *testing.T) {
	d := deckOf(t,
		passageOf("outer", func() []story.Output {
			return []story.Output{story.NewEmbedPassage("inner")}
		}),
		textPassage("inner", "mid"),
		textPassage("elsewhere", "done"),
	)
	p := runtime.NewPlayer(d)

	var exited []string
	tgt := cue.NewTarget("watch")
	tgt.MustBind("outer", cue.Exit, func() { exited = append(exited, "outer") })
	tgt.MustBind("inner", cue.Exit, func() { exited = append(exited, "inner") })
	p.Cues().AddTarget(tgt)

	require.NoError(t, p.Begin())
	require.NoError(t, p.GoTo("elsewhere"))

	// Innermost first, no level cap.
	assert.Equal(t, []string{"inner", "outer"}, exited)
}

func TestDoneCuesRunForEveryStagedPassage(t *testing.T) {
	d := deckOf(t,
		passageOf("outer", func() []story.Output {
			return []story.Output{story.NewEmbedPassage("inner")}
		}),
		textPassage("inner", "mid"),
	)
	p := runtime.NewPlayer(d)

	var done []string
	tgt := cue.NewTarget("watch")
	tgt.MustBind("outer", cue.Done, func() { done = append(done, "outer") })
	tgt.MustBind("inner", cue.Done, func() { done = append(done, "inner") })
	p.Cues().AddTarget(tgt)

	require.NoError(t, p.Begin())
	assert.Equal(t, []string{"outer", "inner"}, done)
}

func TestConventionNamedHandlers(t *testing.T) {
	d := deckOf(t, textPassage("cellar", "dust"))
	p := runtime.NewPlayer(d)

	enters, outputs := 0, 0
	tgt := cue.NewTarget("host")
	tgt.MustBindName("cellar_Enter", func() { enters++ })
	tgt.MustBindName("cellar_Output", func(story.Output) { outputs++ })
	p.Cues().AddTarget(tgt)

	require.NoError(t, p.Begin())

	assert.Equal(t, 1, enters)
	// Marker plus one text.
	assert.Equal(t, 2, outputs)
}

func TestUpdateCuesAreCachedPerStage(t *testing.T) {
	d := deckOf(t, textPassage("scene", "x"))
	p := runtime.NewPlayer(d)

	updates := 0
	asyncRan := false
	tgt := cue.NewTarget("ticker")
	tgt.MustBind("scene", cue.Update, func() { updates++ })
	async := cue.NewTarget("offender")
	async.MustBind("scene", cue.Update, func() cue.Op { asyncRan = true; return nil })
	p.Cues().AddTarget(tgt)
	p.Cues().AddTarget(async)

	// No passage on stage yet.
	p.Update()
	assert.Zero(t, updates)

	require.NoError(t, p.Begin())
	p.Update()
	p.Update()
	assert.Equal(t, 2, updates)
	assert.False(t, asyncRan, "async update handlers are excluded")

	// A target added mid-passage stays invisible until the stage is
	// rebuilt, even after a cache flush.
	lateUpdates := 0
	late := cue.NewTarget("late")
	late.MustBind("scene", cue.Update, func() { lateUpdates++ })
	p.Cues().AddTarget(late)
	p.Cues().InvalidateCache()

	p.Update()
	assert.Zero(t, lateUpdates)
	assert.Equal(t, 3, updates)

	require.NoError(t, p.GoTo("scene"))
	p.Update()
	assert.Equal(t, 1, lateUpdates)
	assert.Equal(t, 4, updates)
}

func TestStyleStampedAtEmitTime(t *testing.T) {
	body := func(tl story.Teller, _ ...any) story.Thread {
		return func(yield func(story.Output) bool) {
			if !yield(story.NewText("plain")) {
				return
			}
			outer := tl.ApplyStyle(story.Style{"bold": true, "color": "red"})
			if !yield(story.NewText("warm")) {
				outer.Close()
				return
			}
			inner := tl.ApplyStyle(story.Style{"color": "blue"})
			ok := yield(story.NewText("cool"))
			inner.Close()
			outer.Close()
			if !ok {
				return
			}
			yield(story.NewText("after"))
		}
	}
	d := deckOf(t, &story.Passage{Name: "scene", Body: body})
	p := runtime.NewPlayer(d)
	require.NoError(t, p.Begin())

	byContent := map[string]story.Style{}
	for _, o := range p.Output() {
		if tx, ok := o.(*story.Text); ok {
			byContent[tx.Content] = tx.Attrs().Style
		}
	}

	assert.Nil(t, byContent["plain"])
	assert.Equal(t, story.Style{"bold": true, "color": "red"}, byContent["warm"])
	assert.Equal(t, story.Style{"bold": true, "color": "blue"}, byContent["cool"])
	assert.Nil(t, byContent["after"])
}

func TestStyleTagsInBuffer(t *testing.T) {
	body := func(tl story.Teller, _ ...any) story.Thread {
		return func(yield func(story.Output) bool) {
			sc := tl.ApplyStyle(story.Style{"tone": "grim"})
			ok := yield(story.NewText("styled"))
			sc.Close()
			if !ok {
				return
			}
			yield(story.NewText("bare"))
		}
	}
	d := deckOf(t, &story.Passage{Name: "scene", Body: body})
	p := runtime.NewPlayer(d, runtime.WithStyleTags(true))
	require.NoError(t, p.Begin())

	out := p.Output()
	require.Len(t, out, 5)

	open, ok := out[1].(*story.StyleTag)
	require.True(t, ok, "expected opening tag, got %T", out[1])
	assert.Equal(t, story.OpenTag, open.Kind)
	assert.Equal(t, story.Style{"tone": "grim"}, open.Applied)

	closed, ok := out[3].(*story.StyleTag)
	require.True(t, ok, "expected closing tag, got %T", out[3])
	assert.Equal(t, story.CloseTag, closed.Kind)

	assert.Equal(t, "styled", out[2].(*story.Text).Content)
	assert.Equal(t, "bare", out[4].(*story.Text).Content)
}

func TestInsertionRedirectFromThread(t *testing.T) {
	body := func(tl story.Teller, _ ...any) story.Thread {
		return func(yield func(story.Output) bool) {
			if !yield(story.NewText("alpha")) {
				return
			}
			if !yield(story.NewText("omega")) {
				return
			}
			tl.BeginInsert(2)
			if !yield(story.NewText("mid")) {
				return
			}
			tl.EndInsert()
			yield(story.NewText("tail"))
		}
	}
	d := deckOf(t, &story.Passage{Name: "scene", Body: body})
	p := runtime.NewPlayer(d)
	require.NoError(t, p.Begin())

	assert.Equal(t, []string{"alpha", "mid", "omega", "tail"}, texts(p))
	for i, o := range p.Output() {
		assert.Equal(t, i, o.Attrs().Index)
	}
}

func TestActionSplicesIntoEarlierOutput(t *testing.T) {
	note := story.NewText("A hairline crack.")
	d := deckOf(t,
		passageOf("scene", func() []story.Output {
			return []story.Output{
				story.NewText("The wall is bare."),
				story.NewText("Dust everywhere."),
				story.NewActionLink("Look closer", func(tl story.Teller) story.Thread {
					return func(yield func(story.Output) bool) {
						tl.BeginInsert(2)
						defer tl.EndInsert()
						yield(note)
					}
				}),
			}
		}),
	)
	p := runtime.NewPlayer(d)
	require.NoError(t, p.Begin())

	// [marker, bare, dust, link]
	require.Equal(t, 4, p.OutputLen())
	require.NoError(t, p.FollowLinkNamed("look closer"))

	assert.Equal(t, []string{
		"The wall is bare.",
		"A hairline crack.",
		"Dust everywhere.",
	}, texts(p))
	assert.Equal(t, 2, note.Attrs().Index)

	link, err := p.LinkAt(0)
	require.NoError(t, err)
	assert.Equal(t, 4, link.Attrs().Index, "trailing items shifted by the splice")
}
