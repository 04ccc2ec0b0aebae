package server

import (
	"context"
	"errors"
	"fmt"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errMissingNPC     = errors.New("npc is required")
	errUnknownKey     = errors.New("key is not bound to a choice")
	errMissingChoice  = errors.New("index or key is required")
)

// dispatch applies one client command to the world. A snapshot request is
// answered directly to the client.
func (s *Server) dispatch(ctx context.Context, c *WebSocketClient, msg clientMessage) error {
	switch msg.Type {
	case cmdEnterRange, cmdExitRange, cmdInteract, cmdSelectChoice:
		if msg.NPC == "" {
			return fmt.Errorf("%s: %w", msg.Type, errMissingNPC)
		}
	}

	switch msg.Type {
	case cmdEnterRange:
		return s.world.EnterRange(ctx, msg.NPC)
	case cmdExitRange:
		return s.world.ExitRange(ctx, msg.NPC)
	case cmdInteract:
		return s.world.Interact(ctx, msg.NPC)
	case cmdSelectChoice:
		index, err := s.choiceIndex(msg)
		if err != nil {
			return err
		}
		return s.world.SelectChoice(ctx, msg.NPC, index)
	case cmdEnemyKilled:
		return s.world.EnemyKilled(ctx)
	case cmdDamage:
		return s.world.DealDamage(ctx, msg.Amount)
	case cmdAddResource:
		return s.world.AddResource(ctx, msg.Delta)
	case cmdSnapshot:
		snap, err := s.world.Snapshot(ctx)
		if err != nil {
			return err
		}
		s.send(c, snapshotMessage{Type: evtSnapshot, Scene: snap})
		return nil
	default:
		return fmt.Errorf("%q: %w", msg.Type, errUnknownCommand)
	}
}

// choiceIndex resolves an explicit index or a bound key.
func (s *Server) choiceIndex(msg clientMessage) (int, error) {
	if msg.Index != nil {
		return *msg.Index, nil
	}
	if msg.Key == "" {
		return 0, errMissingChoice
	}
	index, ok := s.cfg.Choices.ChoiceIndex(msg.Key)
	if !ok {
		return 0, fmt.Errorf("%q: %w", msg.Key, errUnknownKey)
	}
	return index, nil
}
