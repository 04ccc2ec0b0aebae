package world

import (
	"sort"
	"sync"
)

// Ledger is the shared resource counter read by ScoreChecker quests.
type Ledger struct {
	mu    sync.RWMutex
	value int
}

// NewLedger creates a ledger holding start.
func NewLedger(start int) *Ledger {
	return &Ledger{value: start}
}

// CurrentResource returns the current value.
func (l *Ledger) CurrentResource() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

// Add adjusts the value by delta and returns the new value. The value never
// drops below zero.
func (l *Ledger) Add(delta int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value += delta
	if l.value < 0 {
		l.value = 0
	}
	return l.value
}

// objects tracks scene object activation and reports changes to the sink.
type objects struct {
	active map[string]bool
	sink   Sink
}

func newObjects(initial map[string]bool, sink Sink) *objects {
	o := &objects{active: make(map[string]bool, len(initial)), sink: sink}
	for id, active := range initial {
		o.active[id] = active
	}
	return o
}

func (o *objects) SetActive(id string, active bool) {
	if current, ok := o.active[id]; ok && current == active {
		return
	}
	o.active[id] = active
	o.sink.ObjectChanged(id, active)
}

func (o *objects) IsActive(id string) bool {
	return o.active[id]
}

func (o *objects) snapshot() map[string]bool {
	out := make(map[string]bool, len(o.active))
	for id, active := range o.active {
		out[id] = active
	}
	return out
}

// movementLock is the player's movement actuator. Any number of givers may
// hold it; movement comes back when the last one lets go.
type movementLock struct {
	holds int
	sink  Sink
}

func (m *movementLock) DisableMovement() {
	m.holds++
	if m.holds == 1 {
		m.sink.MovementChanged(false)
	}
}

func (m *movementLock) EnableMovement() {
	if m.holds == 0 {
		return
	}
	m.holds--
	if m.holds == 0 {
		m.sink.MovementChanged(true)
	}
}

func (m *movementLock) enabled() bool {
	return m.holds == 0
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
