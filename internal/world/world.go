// Package world runs a scene: every quest giver, the registry, the resource
// ledger, scene objects and exit gates, driven from a single goroutine.
//
// All mutation happens inside Run. Other goroutines reach the world through
// the command queue (Submit, Do and the methods built on them), so every
// event is applied to every giver exactly once and in one order.
package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/questengine/internal/config"
	"github.com/lawnchairsociety/questengine/internal/dialogue"
	"github.com/lawnchairsociety/questengine/internal/giver"
	"github.com/lawnchairsociety/questengine/internal/journal"
	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/npc"
	"github.com/lawnchairsociety/questengine/internal/registry"
	"github.com/lawnchairsociety/questengine/internal/text"
)

var (
	// ErrUnknownNPC is returned for a command naming an NPC not in the scene.
	ErrUnknownNPC = errors.New("unknown npc")
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("world stopped")
)

// Sink receives everything the world presents to the player.
type Sink interface {
	giver.Presenter
	MovementChanged(enabled bool)
	ObjectChanged(id string, active bool)
}

// Recorder persists quest events. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
}

// Deps are optional collaborators of a World.
type Deps struct {
	Sink     Sink
	Text     *text.Text
	Recorder Recorder
	Now      func() time.Time
}

type gateState struct {
	npc.Gate
	opened bool
}

// World is one running scene.
type World struct {
	cfg      *config.EngineConfig
	sink     Sink
	text     *text.Text
	recorder Recorder
	now      func() time.Time

	registry *registry.Registry
	ledger   *Ledger
	objects  *objects
	movement *movementLock
	givers   map[string]*giver.Giver
	gates    []*gateState

	commands chan func(*World)
	journal  chan journal.Entry
	done     chan struct{}
	stopped  bool
}

// New builds a world from a loaded scene and spawns every NPC marked to
// spawn on load.
func New(cfg *config.EngineConfig, scene *npc.SceneConfig, deps Deps) *World {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if scene == nil {
		scene = npc.NewSceneConfig()
	}
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}
	if deps.Text == nil {
		deps.Text = text.New()
	}
	deps.Text.SetPlaceholder(cfg.Dialogue.PlaceholderLine)
	if cfg.Dialogue.WrapWidth > 0 {
		deps.Text.SetWrapWidth(cfg.Dialogue.WrapWidth)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	queueSize := cfg.World.CommandQueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	w := &World{
		cfg:      cfg,
		sink:     deps.Sink,
		text:     deps.Text,
		recorder: deps.Recorder,
		now:      deps.Now,
		registry: registry.New(),
		ledger:   NewLedger(scene.Resource(cfg.World.StartingResource)),
		objects:  newObjects(scene.Objects, deps.Sink),
		movement: &movementLock{sink: deps.Sink},
		givers:   make(map[string]*giver.Giver),
		commands: make(chan func(*World), queueSize),
		journal:  make(chan journal.Entry, queueSize),
		done:     make(chan struct{}),
	}
	w.registry.SetObserver(w.onRegistryEvent)

	for _, g := range scene.GateList() {
		w.gates = append(w.gates, &gateState{Gate: g})
	}
	for _, def := range scene.Definitions() {
		if def.AutoSpawn {
			w.spawn(def)
		}
	}

	logger.Info("World created",
		"givers", len(w.givers),
		"gates", len(w.gates),
		"resource", w.ledger.CurrentResource())
	return w
}

// Run processes commands and ticks until ctx is cancelled. Givers are closed
// and the journal is flushed before it returns.
func (w *World) Run(ctx context.Context) error {
	flushed := make(chan struct{})
	go w.forwardJournal(flushed)

	ticker := time.NewTicker(w.cfg.World.TickInterval())
	defer ticker.Stop()

	logger.Info("World running", "tick", w.cfg.World.TickInterval().String())

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			<-flushed
			logger.Info("World stopped")
			return ctx.Err()
		case cmd := <-w.commands:
			cmd(w)
		case <-ticker.C:
			w.Tick(w.now())
		}
	}
}

func (w *World) shutdown() {
	w.stopped = true
	close(w.done)
	for _, name := range sortedNames(w.givers) {
		w.givers[name].Close()
	}
	w.givers = make(map[string]*giver.Giver)
	close(w.journal)
}

// Submit queues fn to run on the world goroutine without waiting for it.
func (w *World) Submit(ctx context.Context, fn func(*World)) error {
	select {
	case <-w.done:
		return ErrStopped
	default:
	}

	select {
	case w.commands <- fn:
		return nil
	case <-w.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the world goroutine and waits for its result.
func (w *World) Do(ctx context.Context, fn func(*World) error) error {
	result := make(chan error, 1)
	if err := w.Submit(ctx, func(w *World) { result <- fn(w) }); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-w.done:
		// The command may have run just before shutdown.
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawn creates the giver for def, replacing any giver with the same name.
func (w *World) Spawn(ctx context.Context, def npc.Definition) error {
	return w.Do(ctx, func(w *World) error {
		w.spawn(def)
		return nil
	})
}

// Despawn closes and removes the named giver.
func (w *World) Despawn(ctx context.Context, name string) error {
	return w.Do(ctx, func(w *World) error {
		g, ok := w.givers[name]
		if !ok {
			return fmt.Errorf("despawn %s: %w", name, ErrUnknownNPC)
		}
		g.Close()
		delete(w.givers, name)
		logger.Info("Giver despawned", "npc", name)
		return nil
	})
}

// Interact sends the interact command to the named giver.
func (w *World) Interact(ctx context.Context, name string) error {
	return w.withGiver(ctx, name, (*giver.Giver).Interact)
}

// SelectChoice sends a choice key to the named giver.
func (w *World) SelectChoice(ctx context.Context, name string, index int) error {
	return w.withGiver(ctx, name, func(g *giver.Giver) { g.SelectChoice(index) })
}

// EnterRange reports that the player entered the named giver's range.
func (w *World) EnterRange(ctx context.Context, name string) error {
	return w.withGiver(ctx, name, (*giver.Giver).EnterRange)
}

// ExitRange reports that the player left the named giver's range.
func (w *World) ExitRange(ctx context.Context, name string) error {
	return w.withGiver(ctx, name, (*giver.Giver).ExitRange)
}

// EnemyKilled broadcasts a kill to every giver.
func (w *World) EnemyKilled(ctx context.Context) error {
	return w.Do(ctx, func(w *World) error {
		w.registry.BroadcastEnemyKilled()
		return nil
	})
}

// DealDamage broadcasts damage dealt to every giver.
func (w *World) DealDamage(ctx context.Context, amount int) error {
	return w.Do(ctx, func(w *World) error {
		w.registry.BroadcastDamage(amount)
		return nil
	})
}

// AddResource adjusts the shared resource counter and refreshes quest UI so
// ScoreChecker quests see the new value at once.
func (w *World) AddResource(ctx context.Context, delta int) error {
	return w.Do(ctx, func(w *World) error {
		value := w.ledger.Add(delta)
		logger.Debug("Resource changed", "delta", delta, "resource", value)
		w.eachGiver((*giver.Giver).RefreshQuestUI)
		return nil
	})
}

// Tick updates every giver and evaluates the exit gates. It must run on the
// world goroutine: Run calls it on every tick, tests call it through Do.
func (w *World) Tick(now time.Time) {
	w.eachGiver(func(g *giver.Giver) { g.Update(now) })
	w.evaluateGates()
}

// Snapshot returns a copy of the scene state.
func (w *World) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := w.Do(ctx, func(w *World) error {
		snap = w.snapshot()
		return nil
	})
	return snap, err
}

// Registry exposes the registry for read-only lookups on the world goroutine.
func (w *World) Registry() *registry.Registry {
	return w.registry
}

func (w *World) withGiver(ctx context.Context, name string, fn func(*giver.Giver)) error {
	return w.Do(ctx, func(w *World) error {
		g, ok := w.givers[name]
		if !ok {
			return fmt.Errorf("%s: %w", name, ErrUnknownNPC)
		}
		fn(g)
		return nil
	})
}

func (w *World) eachGiver(fn func(*giver.Giver)) {
	for _, name := range sortedNames(w.givers) {
		if g, ok := w.givers[name]; ok {
			fn(g)
		}
	}
}

func (w *World) spawn(def npc.Definition) {
	if old, ok := w.givers[def.Name]; ok {
		logger.Warning("Replacing spawned giver", "npc", def.Name)
		old.Close()
	}

	w.givers[def.Name] = giver.New(giver.Profile{
		Name:            def.Name,
		Portrait:        def.Portrait,
		Script:          def.Script(),
		PrerequisiteNPC: def.PrerequisiteNPC,
		Chain:           def.Chain,
	}, giver.Deps{
		Registry:   w.registry,
		Presenter:  w.sink,
		Movement:   w.movement,
		Resource:   w.ledger,
		Objects:    w.objects,
		Text:       w.text,
		Typewriter: dialogue.Typewriter{Interval: w.cfg.Dialogue.TypingInterval()},
		Dwell:      w.cfg.Completion.LineDwell(),
		Now:        w.now,
		Observer:   w.onGiverEvent,
	})
	logger.Info("Giver spawned", "npc", def.Name, "quests", len(def.Chain))
}

func (w *World) evaluateGates() {
	for _, gate := range w.gates {
		if gate.opened || !gate.Open(w.registry) {
			continue
		}
		gate.opened = true
		w.objects.SetActive(gate.Object, false)
		logger.Info("Gate opened", "gate", gate.ID, "object", gate.Object)
		w.record(journal.Entry{NPC: gate.ID, Kind: "gate_opened", Detail: gate.Object})
	}
}

func (w *World) onRegistryEvent(e registry.Event) {
	// Completions are journaled from the giver, which knows the step.
	if e.Kind != registry.EventTalkedTo {
		return
	}
	w.record(journal.Entry{NPC: e.NPC, Kind: string(e.Kind)})
}

func (w *World) onGiverEvent(e giver.Event) {
	w.record(journal.Entry{NPC: e.NPC, Kind: string(e.Kind), QuestIndex: e.QuestIndex, Detail: e.Detail})
}

// record hands e to the journal goroutine without blocking the world.
func (w *World) record(e journal.Entry) {
	if w.recorder == nil || w.stopped {
		return
	}
	if e.At.IsZero() {
		e.At = w.now()
	}
	select {
	case w.journal <- e:
	default:
		logger.Warning("Journal queue full, dropping event", "npc", e.NPC, "event", e.Kind)
	}
}

func (w *World) forwardJournal(flushed chan<- struct{}) {
	defer close(flushed)
	for e := range w.journal {
		if w.recorder == nil {
			continue
		}
		if _, err := w.recorder.Record(context.Background(), e); err != nil {
			logger.Error("Failed to journal quest event", "npc", e.NPC, "event", e.Kind, "error", err)
		}
	}
}
