package combat

// Policy carries the behaviour that differs between combat variants. The
// session state machine stays singular; a policy value is injected at
// construction instead of subclassing the session.
type Policy interface {
	// AutoCast reports whether the session drives this character's skill
	// loop automatically.
	AutoCast(c Character) bool
	// AppliesRating reports whether honour ratings adjust at finish.
	AppliesRating() bool
	// RatingLosers selects the characters treated as losers for rating and
	// notification purposes. This can be wider than the decisive loser set
	// used for loot: fleeing a ranked match still costs honour, but loot is
	// never taken from someone who fled before being defeated.
	RatingLosers(participants map[string]*Participant, winners map[string]Character) map[string]Character
}

// policyFor returns the policy value for a combat type.
func policyFor(t Type) Policy {
	switch t {
	case TypeHonour:
		return honourPolicy{}
	case TypeHonourAuto:
		return honourAutoPolicy{}
	default:
		return normalPolicy{}
	}
}

// normalPolicy is PvE combat: NPCs fight automatically, no rating.
type normalPolicy struct{}

func (normalPolicy) AutoCast(c Character) bool { return !c.IsPlayer() }
func (normalPolicy) AppliesRating() bool       { return false }

func (normalPolicy) RatingLosers(map[string]*Participant, map[string]Character) map[string]Character {
	return nil
}

// honourPolicy is ranked PvP: players cast their own skills, rating applies,
// and everyone outside the winning side loses honour.
type honourPolicy struct{}

func (honourPolicy) AutoCast(c Character) bool { return !c.IsPlayer() }
func (honourPolicy) AppliesRating() bool       { return true }

func (honourPolicy) RatingLosers(participants map[string]*Participant, winners map[string]Character) map[string]Character {
	return allNonWinners(participants, winners)
}

// honourAutoPolicy is ranked PvP with the engine driving every participant's
// skill loop.
type honourAutoPolicy struct{}

func (honourAutoPolicy) AutoCast(Character) bool { return true }
func (honourAutoPolicy) AppliesRating() bool     { return true }

func (honourAutoPolicy) RatingLosers(participants map[string]*Participant, winners map[string]Character) map[string]Character {
	return allNonWinners(participants, winners)
}

// allNonWinners returns every participant outside winners, excluding those
// already released from the session. Escaped participants count: withdrawing
// from a ranked match is a loss for rating purposes.
func allNonWinners(participants map[string]*Participant, winners map[string]Character) map[string]Character {
	losers := make(map[string]Character)
	for uid, p := range participants {
		if _, won := winners[uid]; won {
			continue
		}
		if p.Status == StatusLeft {
			continue
		}
		losers[uid] = p.Character
	}
	return losers
}
