package deck

import (
	"fmt"
	"strings"

	"github.com/weftworks/skein/pkg/story"
)

// Problem is one finding of Validate. Warnings do not make the deck
// unplayable.
type Problem struct {
	Passage string
	Message string
	Warning bool
}

func (p Problem) String() string {
	where := p.Passage
	if where == "" {
		where = "deck"
	}
	return fmt.Sprintf("%s: %s", where, p.Message)
}

// Validate lints a deck: the start passage must exist, every link,
// embed and abort target must resolve, link names within a passage
// must be distinct under case-insensitive comparison, and passages
// unreachable from the start are reported as warnings.
//
// Validation plays every passage body once outside an engine to see
// what it produces, so bodies with host side effects will run. Passage
// arguments are empty and story variables read as nil during the dry
// run; a body that panics under those conditions is itself reported.
func Validate(d *Deck) []Problem {
	var problems []Problem

	if d.Start() == "" {
		problems = append(problems, Problem{Message: "no start passage configured"})
	}

	refs := make(map[string][]string)
	for _, p := range d.Passages() {
		targets, links, panicked := dryRun(p)
		if panicked != nil {
			problems = append(problems, Problem{
				Passage: p.Name,
				Message: fmt.Sprintf("body panicked during validation: %v", panicked),
			})
			continue
		}
		refs[p.Name] = targets
		for _, target := range targets {
			if _, ok := d.Passage(target); !ok {
				problems = append(problems, Problem{
					Passage: p.Name,
					Message: fmt.Sprintf("references undefined passage %q", target),
				})
			}
		}
		// Link lookup is case-insensitive and takes the first match, so
		// names differing only in case shadow each other.
		for i, name := range links {
			for _, earlier := range links[:i] {
				if strings.EqualFold(earlier, name) {
					problems = append(problems, Problem{
						Passage: p.Name,
						Message: fmt.Sprintf("link %q duplicates %q under case-insensitive lookup", name, earlier),
					})
					break
				}
			}
		}
	}

	if start := d.Start(); start != "" {
		reachable := walk(start, refs)
		for _, name := range d.Names() {
			if !reachable[name] {
				problems = append(problems, Problem{
					Passage: name,
					Message: "unreachable from the start passage",
					Warning: true,
				})
			}
		}
	}

	return problems
}

// dryRun plays a passage body against a no-op teller and collects the
// passage names it references and the link names it offers.
func dryRun(p *story.Passage) (targets, links []string, panicked any) {
	defer func() {
		if rec := recover(); rec != nil {
			panicked = rec
		}
	}()
	for o := range p.Play(dryTeller{}) {
		switch item := o.(type) {
		case *story.Link:
			links = append(links, item.Name)
			if item.Target != "" {
				targets = append(targets, item.Target)
			}
		case *story.EmbedPassage:
			targets = append(targets, item.Name)
		case *story.Abort:
			if item.Target != "" {
				targets = append(targets, item.Target)
			}
		}
	}
	return targets, links, nil
}

func walk(start string, refs map[string][]string) map[string]bool {
	reachable := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, next := range refs[name] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reachable
}

// dryTeller satisfies story.Teller without an engine behind it.
type dryTeller struct{}

func (dryTeller) ApplyStyle(s story.Style) story.Scope { return dryScope{} }
func (dryTeller) Var(name string) any                  { return nil }
func (dryTeller) SetVar(name string, value any)        {}
func (dryTeller) Member(container, member any) (any, error) {
	return nil, nil
}
func (dryTeller) BeginInsert(index int) {}
func (dryTeller) EndInsert()            {}

type dryScope struct{}

func (dryScope) Close() {}
