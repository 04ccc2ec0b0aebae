// Package registry tracks facts shared across quest givers and routes
// progress events to the givers whose active quest cares about them.
package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/quest"
)

// Subscriber is a quest giver as seen by the registry.
type Subscriber interface {
	NPCName() string
	// ActiveQuestKind returns the kind of the step being tracked, or
	// quest.KindNone when no step is active.
	ActiveQuestKind() quest.Kind
	OnEnemyKilled()
	OnDamageDealt(amount int)
	OnTalkedTo(name string)
	// StartNextInChain starts the next step if the giver is idle and has
	// steps left. It reports whether a step was started.
	StartNextInChain() bool
}

// EventKind names a fact recorded by the registry.
type EventKind string

const (
	EventTalkedTo       EventKind = "talked_to"
	EventQuestCompleted EventKind = "quest_completed"
)

// Event is passed to the observer when a fact is recorded for the first time.
type Event struct {
	Kind EventKind
	NPC  string
}

// Registry holds the talked-to set, the completion map and the set of
// subscribed givers. The mutex guards the maps only; subscribers are always
// called with it released so handlers may call back into the registry.
type Registry struct {
	mu          sync.RWMutex
	talkedTo    map[string]bool
	completedBy map[string]bool
	subs        map[uuid.UUID]Subscriber
	ids         map[Subscriber]uuid.UUID
	order       []uuid.UUID
	observer    func(Event)
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		talkedTo:    make(map[string]bool),
		completedBy: make(map[string]bool),
		subs:        make(map[uuid.UUID]Subscriber),
		ids:         make(map[Subscriber]uuid.UUID),
	}
}

// SetObserver installs fn to receive first-time facts. It is called outside
// the lock, after the fact is recorded and before any broadcast.
func (r *Registry) SetObserver(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// Register adds s to the subscription set and returns its id. Registering
// the same subscriber again returns the id it already has.
func (r *Registry) Register(s Subscriber) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[s]; ok {
		return id
	}
	id := uuid.New()
	r.subs[id] = s
	r.ids[s] = id
	r.order = append(r.order, id)
	logger.Debug("Giver registered", "npc", s.NPCName(), "id", id.String())
	return id
}

// Unregister removes the subscription with id. Unknown ids are ignored.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return
	}
	delete(r.subs, id)
	delete(r.ids, s)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	logger.Debug("Giver unregistered", "npc", s.NPCName(), "id", id.String())
}

// Len returns the number of subscribed givers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// HasTalkedTo reports whether name has been talked to.
func (r *Registry) HasTalkedTo(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.talkedTo[name]
}

// IsQuestCompletedFrom reports whether a quest step from name has completed.
func (r *Registry) IsQuestCompletedFrom(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.completedBy[name]
}

// TalkedTo returns the talked-to names, sorted.
func (r *Registry) TalkedTo() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.talkedTo)
}

// Completed returns the names with a completed quest step, sorted.
func (r *Registry) Completed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.completedBy)
}

// MarkTalkedTo records that name was talked to. Only the first call for a
// name broadcasts to TalkToNPC givers.
func (r *Registry) MarkTalkedTo(name string) {
	r.mu.Lock()
	if r.talkedTo[name] {
		r.mu.Unlock()
		return
	}
	r.talkedTo[name] = true
	observer := r.observer
	ids := r.snapshot()
	r.mu.Unlock()

	logger.Info("NPC talked to", "npc", name, "event", string(EventTalkedTo))
	if observer != nil {
		observer(Event{Kind: EventTalkedTo, NPC: name})
	}
	r.deliver(ids, quest.KindTalkToNPC, func(s Subscriber) { s.OnTalkedTo(name) })
}

// BroadcastEnemyKilled notifies every EnemyExtermination giver.
func (r *Registry) BroadcastEnemyKilled() {
	r.mu.RLock()
	ids := r.snapshot()
	r.mu.RUnlock()

	logger.Debug("Broadcast enemy killed", "event", "enemy_killed", "givers", len(ids))
	r.deliver(ids, quest.KindEnemyExtermination, func(s Subscriber) { s.OnEnemyKilled() })
}

// BroadcastDamage notifies every RequirementQuest giver.
func (r *Registry) BroadcastDamage(amount int) {
	r.mu.RLock()
	ids := r.snapshot()
	r.mu.RUnlock()

	logger.Debug("Broadcast damage", "event", "damage", "amount", amount, "givers", len(ids))
	r.deliver(ids, quest.KindRequirement, func(s Subscriber) { s.OnDamageDealt(amount) })
}

// MarkQuestCompleted records that a quest step from name completed, then asks
// the subscribed giver with that name to continue its chain. The request is a
// no-op unless that giver is idle.
func (r *Registry) MarkQuestCompleted(name string) {
	r.mu.Lock()
	first := !r.completedBy[name]
	r.completedBy[name] = true
	observer := r.observer
	ids := r.snapshot()
	r.mu.Unlock()

	logger.Info("Quest completed", "npc", name, "event", string(EventQuestCompleted))
	if first && observer != nil {
		observer(Event{Kind: EventQuestCompleted, NPC: name})
	}

	for _, id := range ids {
		s, ok := r.lookup(id)
		if !ok || s.NPCName() != name {
			continue
		}
		if s.StartNextInChain() {
			logger.Debug("Registry continued chain", "npc", name)
		}
	}
}

// snapshot copies the subscription order. Caller holds the lock.
func (r *Registry) snapshot() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.order))
	copy(ids, r.order)
	return ids
}

// lookup returns the subscriber for id if it is still registered.
func (r *Registry) lookup(id uuid.UUID) (Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[id]
	return s, ok
}

// deliver calls fn for each id still registered whose active quest kind is
// kind. Ids removed since the snapshot are skipped.
func (r *Registry) deliver(ids []uuid.UUID, kind quest.Kind, fn func(Subscriber)) {
	for _, id := range ids {
		s, ok := r.lookup(id)
		if !ok {
			continue
		}
		if s.ActiveQuestKind() != kind {
			continue
		}
		fn(s)
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
