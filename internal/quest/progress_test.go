package quest

import "testing"

func TestProgress_SatisfiedIsClosedBoundary(t *testing.T) {
	typ := EnemyExtermination(3)
	p := Progress{}

	for kill := 1; kill <= 3; kill++ {
		p.Kills++
		want := kill == 3
		if got := p.Satisfied(typ, 0); got != want {
			t.Errorf("after kill %d Satisfied = %v, want %v", kill, got, want)
		}
	}
}

func TestProgress_SatisfiedByKind(t *testing.T) {
	tests := []struct {
		name     string
		progress Progress
		typ      Type
		resource int
		want     bool
	}{
		{"damage below", Progress{Damage: 99}, RequirementQuest(100), 0, false},
		{"damage met", Progress{Damage: 100}, RequirementQuest(100), 0, true},
		{"damage ignores kills", Progress{Kills: 500}, RequirementQuest(100), 0, false},
		{"score below", Progress{}, ScoreChecker(10), 5, false},
		{"score met", Progress{}, ScoreChecker(10), 10, true},
		{"talk pending", Progress{}, TalkToNPC("Warrior"), 0, false},
		{"talk done", Progress{Talked: true}, TalkToNPC("Warrior"), 0, true},
		{"none never", Progress{Kills: 10, Damage: 10, Talked: true}, None(), 10, false},
		{"zero threshold", Progress{}, EnemyExtermination(0), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.progress.Satisfied(tt.typ, tt.resource); got != tt.want {
				t.Errorf("Satisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgress_Current(t *testing.T) {
	p := Progress{Kills: 2, Damage: 40}

	if got := p.Current(EnemyExtermination(3), 0); got != 2 {
		t.Errorf("kills current = %d", got)
	}
	if got := p.Current(RequirementQuest(100), 0); got != 40 {
		t.Errorf("damage current = %d", got)
	}
	if got := p.Current(ScoreChecker(10), 7); got != 7 {
		t.Errorf("score current = %d", got)
	}
	if got := p.Current(TalkToNPC("x"), 0); got != 0 {
		t.Errorf("talk current = %d", got)
	}
}
