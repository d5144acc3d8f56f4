// Package deckfile loads decks from YAML documents. A deck file names
// its start passage and lists passages built from declarative steps;
// anything needing real code (actions, fragments, custom bodies)
// stays in Go and is added to the deck afterwards.
package deckfile

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/weftworks/skein/pkg/deck"
	"github.com/weftworks/skein/pkg/story"
)

// Document is the top-level shape of a deck file.
type Document struct {
	Title    string       `yaml:"title" mapstructure:"title"`
	Start    string       `yaml:"start" mapstructure:"start"`
	Passages []PassageDoc `yaml:"passages" mapstructure:"passages"`
}

// PassageDoc is one passage definition. Each step is a single-key
// mapping ("text", "line", "link", "embed", "styled", "abort") whose
// value is decoded into the matching step shape.
type PassageDoc struct {
	Name  string           `yaml:"name" mapstructure:"name"`
	Tags  []string         `yaml:"tags" mapstructure:"tags"`
	Steps []map[string]any `yaml:"steps" mapstructure:"steps"`
}

type linkStep struct {
	Name   string `mapstructure:"name"`
	Target string `mapstructure:"target"`
}

type embedStep struct {
	Passage string `mapstructure:"passage"`
	Args    []any  `mapstructure:"args"`
}

type styledStep struct {
	Style map[string]any   `mapstructure:"style"`
	Steps []map[string]any `mapstructure:"steps"`
}

type abortStep struct {
	Target string `mapstructure:"target"`
}

// Load reads and parses a deck file.
func Load(path string) (*deck.Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deck file: %w", err)
	}
	defer f.Close()
	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a YAML deck document from r and builds the deck.
func Parse(r io.Reader) (*deck.Deck, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read deck file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse deck file: %w", err)
	}
	return Build(doc)
}

// Build turns a parsed document into a deck.
func Build(doc Document) (*deck.Deck, error) {
	if len(doc.Passages) == 0 {
		return nil, fmt.Errorf("deck file defines no passages")
	}

	b := deck.NewBuilder()
	if doc.Start != "" {
		b.Start(doc.Start)
	}
	seen := make(map[string]bool)
	for _, pd := range doc.Passages {
		if pd.Name == "" {
			return nil, fmt.Errorf("passage without a name")
		}
		// The builder would silently merge a repeated name into the
		// earlier passage; in a document that is an authoring mistake.
		if seen[pd.Name] {
			return nil, fmt.Errorf("passage %q defined twice", pd.Name)
		}
		seen[pd.Name] = true
		pb := b.Passage(pd.Name).Tags(pd.Tags...)
		if err := addSteps(pb, pd.Steps); err != nil {
			return nil, fmt.Errorf("passage %q: %w", pd.Name, err)
		}
	}
	return b.Build()
}

func addSteps(pb *deck.PassageBuilder, steps []map[string]any) error {
	for i, raw := range steps {
		if len(raw) != 1 {
			return fmt.Errorf("step %d: expected exactly one step key, got %d", i+1, len(raw))
		}
		for kind, value := range raw {
			if err := addStep(pb, kind, value); err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, kind, err)
			}
		}
	}
	return nil
}

func addStep(pb *deck.PassageBuilder, kind string, value any) error {
	switch kind {
	case "text":
		content, ok := value.(string)
		if !ok {
			return fmt.Errorf("text step expects a string, got %T", value)
		}
		pb.Text(content)

	case "line":
		pb.Line()

	case "link":
		var s linkStep
		if err := decode(value, &s); err != nil {
			return err
		}
		if s.Name == "" || s.Target == "" {
			return fmt.Errorf("link step needs name and target")
		}
		pb.Link(s.Name, s.Target)

	case "embed":
		var s embedStep
		if err := decode(value, &s); err != nil {
			return err
		}
		if s.Passage == "" {
			return fmt.Errorf("embed step needs a passage")
		}
		pb.Embed(s.Passage, s.Args...)

	case "styled":
		var s styledStep
		if err := decode(value, &s); err != nil {
			return err
		}
		var inner error
		pb.Styled(story.Style(s.Style), func(p *deck.PassageBuilder) {
			inner = addSteps(p, s.Steps)
		})
		if inner != nil {
			return inner
		}

	case "abort":
		var s abortStep
		if err := decode(value, &s); err != nil {
			// A bare "- abort:" with no mapping is a plain stop.
			if value != nil {
				return err
			}
		}
		pb.Abort(s.Target)

	default:
		return fmt.Errorf("unknown step kind %q", kind)
	}
	return nil
}

// decode maps a loosely-typed YAML value onto a step shape, rejecting
// keys the shape does not declare.
func decode(value any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("decode step: %w", err)
	}
	return nil
}
