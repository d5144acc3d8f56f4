package skein_test

import (
	"strings"
	"testing"

	"github.com/weftworks/skein"
	"github.com/weftworks/skein/pkg/cue"
	"github.com/weftworks/skein/pkg/deck"
	"github.com/weftworks/skein/pkg/story"
)

func buildCottageDeck(t *testing.T) *deck.Deck {
	t.Helper()
	b := deck.NewBuilder()
	b.Passage("porch").
		Tags("outdoors").
		Text("The porch light hums.").
		Link("Knock", "door").
		Link("Leave", "lane")
	b.Passage("door").
		Text("No one answers.").
		Link("Try the handle", "kitchen")
	b.Passage("kitchen").
		Text("The kettle is still warm.")
	b.Passage("lane").
		Text("Gravel crunches underfoot.")

	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return d
}

func TestStoryIntegration(t *testing.T) {
	d := buildCottageDeck(t)

	// 1. Initialization
	st, err := skein.New(d, skein.WithName("cottage"))
	if err != nil {
		t.Fatalf("Failed to initialize story: %v", err)
	}

	// 2. Begin plays the start passage to completion
	if err := st.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if st.State() != story.StateIdle {
		t.Errorf("Expected idle after Begin, got %s", st.State())
	}
	if st.CurrentPassage() != "porch" {
		t.Errorf("Expected current passage 'porch', got %q", st.CurrentPassage())
	}
	if got := st.Tags(); len(got) != 1 || got[0] != "outdoors" {
		t.Errorf("Expected tags [outdoors], got %v", got)
	}

	// 3. The output buffer holds the text and both links
	var text strings.Builder
	for _, o := range st.Output() {
		if tx, ok := o.(*story.Text); ok {
			text.WriteString(tx.Content)
		}
	}
	if text.String() != "The porch light hums." {
		t.Errorf("Unexpected buffered text: %q", text.String())
	}
	if links := st.Links(); len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d", len(links))
	}
	if !st.HasLink("knock") {
		t.Error("Expected case-insensitive link lookup to find 'knock'")
	}

	// 4. Following a link navigates
	if err := st.FollowLinkNamed("knock"); err != nil {
		t.Fatalf("FollowLinkNamed failed: %v", err)
	}
	if st.CurrentPassage() != "door" {
		t.Errorf("Expected current passage 'door', got %q", st.CurrentPassage())
	}
	if st.LinksFollowed() != 1 {
		t.Errorf("Expected 1 followed link, got %d", st.LinksFollowed())
	}
	if got := st.History(); len(got) != 2 || got[0] != "porch" || got[1] != "door" {
		t.Errorf("Expected history [porch door], got %v", got)
	}

	// 5. Reset returns to initial conditions
	if err := st.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if st.CurrentPassage() != "" || st.OutputLen() != 0 {
		t.Errorf("Expected a blank story after Reset, got passage %q with %d items",
			st.CurrentPassage(), st.OutputLen())
	}
}

func TestNewRequiresDeck(t *testing.T) {
	if _, err := skein.New(nil); err == nil {
		t.Fatal("Expected an error for a nil deck")
	}
}

func TestNewValidatesDeck(t *testing.T) {
	b := deck.NewBuilder()
	b.Passage("porch").Link("Enter", "missing")
	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// The dangling link target fails construction...
	_, err = skein.New(d)
	if err == nil {
		t.Fatal("Expected validation to reject the dangling link")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("Expected the error to name the dangling target, got: %v", err)
	}

	// ...unless validation is disabled.
	if _, err := skein.New(d, skein.WithValidation(false)); err != nil {
		t.Fatalf("Expected WithValidation(false) to skip linting, got: %v", err)
	}
}

func TestStoryCueWiring(t *testing.T) {
	d := buildCottageDeck(t)

	entered := 0
	tgt := cue.NewTarget("host")
	tgt.MustBind("porch", cue.Enter, func() { entered++ })

	st, err := skein.New(d, skein.WithCueTarget(tgt))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := st.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if entered != 1 {
		t.Errorf("Expected the enter cue to fire once, got %d", entered)
	}
}

func TestStoryObserversOption(t *testing.T) {
	d := buildCottageDeck(t)

	var passages []string
	st, err := skein.New(d, skein.WithObservers(story.Observers{
		PassageEntered: func(p *story.Passage) { passages = append(passages, p.Name) },
	}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := st.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := st.FollowLinkNamed("leave"); err != nil {
		t.Fatalf("FollowLinkNamed failed: %v", err)
	}
	if len(passages) != 2 || passages[0] != "porch" || passages[1] != "lane" {
		t.Errorf("Expected [porch lane], got %v", passages)
	}
}

func TestStoryVarsRoundTrip(t *testing.T) {
	d := buildCottageDeck(t)
	st, err := skein.New(d, skein.WithVars(map[string]any{"visits": 3}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := st.Var("visits"); got != 3 {
		t.Errorf("Expected seeded var 3, got %v", got)
	}
	st.SetVar("visits", 4)
	if got := st.Vars()["visits"]; got != 4 {
		t.Errorf("Expected updated var 4, got %v", got)
	}
}
