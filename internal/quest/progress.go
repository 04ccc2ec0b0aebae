package quest

// Progress holds the counters of the step currently active on a quest giver.
// It is reset to the zero value whenever a step starts.
type Progress struct {
	Kills  int
	Damage int
	Talked bool // The TalkToNPC target has been talked to
}

// Satisfied reports whether the progress meets the step's threshold.
// Thresholds are closed: reaching the threshold exactly completes the step.
// resource is the live value of the shared counter read by ScoreChecker.
func (p Progress) Satisfied(t Type, resource int) bool {
	switch t.Kind() {
	case KindEnemyExtermination:
		return p.Kills >= t.Threshold()
	case KindRequirement:
		return p.Damage >= t.Threshold()
	case KindScoreChecker:
		return resource >= t.Threshold()
	case KindTalkToNPC:
		return p.Talked
	default:
		return false
	}
}

// Current returns the counter relevant to the step type.
func (p Progress) Current(t Type, resource int) int {
	switch t.Kind() {
	case KindEnemyExtermination:
		return p.Kills
	case KindRequirement:
		return p.Damage
	case KindScoreChecker:
		return resource
	case KindTalkToNPC:
		if p.Talked {
			return 1
		}
		return 0
	default:
		return 0
	}
}
