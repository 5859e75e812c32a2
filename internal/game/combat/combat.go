// Package combat implements the combat session engine: the per-match state
// machine, its variant policies, and reward computation.
package combat

// Type distinguishes the combat variants.
type Type int

const (
	// TypeNormal is PvE combat created directly by an attack command.
	TypeNormal Type = iota
	// TypeHonour is ranked PvP combat created by the matchmaking queue.
	TypeHonour
	// TypeHonourAuto is ranked PvP combat where the engine drives every
	// participant's skills automatically.
	TypeHonourAuto
)

// String returns a human-readable combat type label.
func (t Type) String() string {
	switch t {
	case TypeNormal:
		return "normal"
	case TypeHonour:
		return "honour"
	case TypeHonourAuto:
		return "honour_auto"
	default:
		return "unknown"
	}
}

// Status is one participant's state within a session.
type Status int

const (
	// StatusJoined means the participant is assigned but combat has not started.
	StatusJoined Status = iota
	// StatusActive means the participant is fighting.
	StatusActive
	// StatusEscaped means the participant withdrew before a decisive finish.
	StatusEscaped
	// StatusFinished means the session ended decisively with this participant
	// still in it.
	StatusFinished
	// StatusLeft means the participant has been released from the session.
	// Left is terminal and reachable from any state.
	StatusLeft
)

// String returns a human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusJoined:
		return "joined"
	case StatusActive:
		return "active"
	case StatusEscaped:
		return "escaped"
	case StatusFinished:
		return "finished"
	case StatusLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Participant is one character's membership in a session. The session holds a
// non-owning reference to the character; character logic stays outside the
// engine.
type Participant struct {
	// Character is the externally owned character object.
	Character Character
	// TeamID is the equality-comparable grouping key.
	TeamID string
	// Status is the participant's state machine position.
	Status Status
}

// Team is one side of a combat session.
type Team struct {
	// ID is the team grouping key.
	ID string
	// Members are the characters fighting on this team.
	Members []Character
}
