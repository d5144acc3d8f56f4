package story

// State is the playback mode of the engine.
type State string

const (
	StateIdle    State = "idle"    // No thread is playing; navigation is legal
	StatePlaying State = "playing" // A thread is being pulled
	StatePaused  State = "paused"  // Suspended mid-thread or mid-transition
	StateExiting State = "exiting" // Exit cues of the previous passage are running
)
