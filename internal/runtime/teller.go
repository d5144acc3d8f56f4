package runtime

import "github.com/weftworks/skein/pkg/story"

// teller is the story.Teller the player hands to passage bodies and
// link actions.
type teller struct {
	p *Player
}

func (t teller) ApplyStyle(s story.Style) story.Scope {
	return t.p.scopes.push(s)
}

func (t teller) Var(name string) any {
	return t.p.vars[name]
}

func (t teller) SetVar(name string, value any) {
	t.p.vars[name] = value
}

func (t teller) Member(container, member any) (any, error) {
	return t.p.members.Access(container, member)
}

func (t teller) BeginInsert(index int) {
	t.p.buf.beginInsert(index)
}

func (t teller) EndInsert() {
	t.p.buf.endInsert()
}
