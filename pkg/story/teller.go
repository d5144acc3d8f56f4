package story

// Teller is the narrow view of the playback engine handed to passage
// bodies and link actions. It exposes what narrative code needs while
// a thread is being pulled; navigation and lifecycle stay with the
// host.
type Teller interface {
	// ApplyStyle pushes a style scope. Close the returned handle to
	// pop it; styles compose with inner scopes overriding outer ones.
	ApplyStyle(s Style) Scope

	// Var reads a story variable, nil if unset.
	Var(name string) any

	// SetVar writes a story variable.
	SetVar(name string, value any)

	// Member resolves container[member] through the engine's
	// member-access table (strings, slices, maps by default).
	Member(container, member any) (any, error)

	// BeginInsert redirects subsequent output to the given buffer
	// position instead of the end. Redirects nest as a stack.
	BeginInsert(index int)

	// EndInsert pops the innermost redirect.
	EndInsert()
}
