package cue

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/skein/pkg/story"
)

func markersFor(names ...string) []*story.PassageMarker {
	ms := make([]*story.PassageMarker, 0, len(names))
	for _, n := range names {
		ms = append(ms, story.NewPassageMarker(&story.Passage{Name: n}))
	}
	return ms
}

func TestBindRejectsUnsupportedSignature(t *testing.T) {
	target := NewTarget("host")

	err := target.Bind("Cellar", Enter, func(s string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cue handler signature")

	err = target.BindName("Cellar_Enter", 42)
	require.Error(t, err)
}

func TestExplicitBindingBeatsConvention(t *testing.T) {
	var calls []string
	target := NewTarget("host").
		MustBindName("Cellar_Enter", func() { calls = append(calls, "named") }).
		MustBind("Cellar", Enter, func() { calls = append(calls, "explicit") })

	r := NewRegistry()
	r.AddTarget(target)

	r.Invoke(r.Find("Cellar", Enter))
	assert.Equal(t, []string{"explicit"}, calls)
}

func TestConventionRequiresIdentifierName(t *testing.T) {
	entered := false
	target := NewTarget("host").
		MustBindName("Dusty Cellar_Enter", func() { entered = true })

	r := NewRegistry()
	r.AddTarget(target)

	// "Dusty Cellar" is not an identifier, so the convention pool is
	// never consulted for it.
	assert.Empty(t, r.Find("Dusty Cellar", Enter))
	assert.False(t, entered)

	// An explicit binding reaches it regardless of the name.
	require.NoError(t, target.Bind("Dusty Cellar", Enter, func() { entered = true }))
	r.InvalidateCache()
	r.Invoke(r.Find("Dusty Cellar", Enter))
	assert.True(t, entered)
}

func TestEveryTargetContributesOneHandler(t *testing.T) {
	var calls []string
	first := NewTarget("first").
		MustBindName("Cellar_Enter", func() { calls = append(calls, "first") })
	second := NewTarget("second").
		MustBind("Cellar", Enter, func() { calls = append(calls, "second") })

	r := NewRegistry()
	r.AddTarget(first)
	r.AddTarget(second)

	r.Invoke(r.Find("Cellar", Enter))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestCacheHoldsUntilInvalidated(t *testing.T) {
	r := NewRegistry()

	// Negative result is cached too.
	assert.Empty(t, r.Find("Cellar", Enter))

	called := false
	r.AddTarget(NewTarget("late").
		MustBind("Cellar", Enter, func() { called = true }))

	// Still the cached (and snapshotted) view.
	r.Invoke(r.Find("Cellar", Enter))
	assert.False(t, called, "target added after discovery must stay invisible until invalidation")

	r.InvalidateCache()
	r.Invoke(r.Find("Cellar", Enter))
	assert.True(t, called)
}

func TestFindScopedLevelCap(t *testing.T) {
	target := NewTarget("host").
		MustBindName("Inner_Enter", func() {}).
		MustBindName("Outer_Enter", func() {})

	r := NewRegistry()
	r.AddTarget(target)

	// Newest-first walk: with the cap at one level only Inner's cue
	// is collected even though Outer has one as well.
	bs := r.FindScoped(slices.Values(markersFor("Inner", "Outer")), Enter, 1)
	require.Len(t, bs, 1)
	assert.Equal(t, "Inner", bs[0].Passage)

	// A level without cues does not count toward the cap.
	bs = r.FindScoped(slices.Values(markersFor("Silent", "Outer")), Enter, 1)
	require.Len(t, bs, 1)
	assert.Equal(t, "Outer", bs[0].Passage)

	// Uncapped walk collects every level once, duplicates skipped.
	bs = r.FindScoped(slices.Values(markersFor("Inner", "Inner", "Outer")), Enter, 0)
	require.Len(t, bs, 2)
}

func TestSyncOnlyDropsAsyncHandlers(t *testing.T) {
	target := NewTarget("host").
		MustBindName("Cellar_Update", func() Op { return nil }).
		MustBind("Cellar", Update, func() Op { return nil })
	other := NewTarget("quiet").
		MustBindName("Cellar_Update", func() {})

	r := NewRegistry()
	r.AddTarget(target)
	r.AddTarget(other)

	bs := r.SyncOnly(r.Find("Cellar", Update))
	require.Len(t, bs, 1)
	assert.Equal(t, "quiet", bs[0].Target)
}

func TestInvokeSkipsArgumentMismatch(t *testing.T) {
	var got []string
	target := NewTarget("host").
		MustBind("Cellar", Output, func() { got = append(got, "no-args") }).
		MustBindName("Cellar_Output", func() {})
	typed := NewTarget("typed").
		MustBind("Cellar", Output, func(o story.Output) { got = append(got, o.String()) })

	r := NewRegistry()
	r.AddTarget(target)
	r.AddTarget(typed)

	// Output dispatch supplies one story.Output argument: the no-arg
	// handler is skipped with a warning, the typed one runs.
	r.Invoke(r.Find("Cellar", Output), story.Output(story.NewText("drip")))
	assert.Equal(t, []string{"drip"}, got)
}

func TestInvokeSchedulesAsyncResult(t *testing.T) {
	var scheduled []Op
	sched := SchedulerFunc(func(op Op) { scheduled = append(scheduled, op) })
	r := NewRegistry(WithScheduler(sched))

	sideEffect := false
	r.AddTarget(NewTarget("host").
		MustBind("Cellar", Done, func() Op {
			return func(ctx context.Context) error {
				sideEffect = true
				return nil
			}
		}).
		MustBind("Cellar", Aborted, func() Op { return nil }))

	r.Invoke(r.Find("Cellar", Done))
	require.Len(t, scheduled, 1)
	assert.False(t, sideEffect, "op must not run inline")
	require.NoError(t, scheduled[0](context.Background()))
	assert.True(t, sideEffect)

	// nil Op means no follow-up: nothing reaches the scheduler.
	r.Invoke(r.Find("Cellar", Aborted))
	assert.Len(t, scheduled, 1)
}

func TestInvokeRecoversPanickingHandler(t *testing.T) {
	var after []string
	target := NewTarget("host").
		MustBind("Cellar", Enter, func() { panic("boom") })
	next := NewTarget("next").
		MustBind("Cellar", Enter, func() { after = append(after, "ran") })

	r := NewRegistry()
	r.AddTarget(target)
	r.AddTarget(next)

	assert.NotPanics(t, func() {
		r.Invoke(r.Find("Cellar", Enter))
	})
	assert.Equal(t, []string{"ran"}, after)
}

func TestValidIdent(t *testing.T) {
	cases := map[string]bool{
		"Cellar":       true,
		"_private":     true,
		"Cellar2":      true,
		"Dusty Cellar": false,
		"2Cellar":      false,
		"":             false,
		"Größe":        true,
	}
	for name, want := range cases {
		assert.Equal(t, want, validIdent(name), "name %q", name)
	}
}
