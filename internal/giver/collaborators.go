package giver

import (
	"github.com/google/uuid"
	"github.com/lawnchairsociety/questengine/internal/registry"
)

// Registry is the subset of the quest registry a giver talks to.
type Registry interface {
	Register(s registry.Subscriber) uuid.UUID
	Unregister(id uuid.UUID)
	HasTalkedTo(name string) bool
	IsQuestCompletedFrom(name string) bool
	MarkTalkedTo(name string)
	MarkQuestCompleted(name string)
}

// Presenter renders dialogue, choice and quest UI.
type Presenter interface {
	ShowLine(speaker, text, portrait string)
	HideDialogue()
	ShowChoices(labels []string)
	HideChoices()
	SetQuestText(title, description string)
	ClearQuestText()
}

// Movement freezes and releases the player's movement.
type Movement interface {
	DisableMovement()
	EnableMovement()
}

// ResourceSource exposes the shared counter read by ScoreChecker steps.
type ResourceSource interface {
	CurrentResource() int
}

// SceneObjects toggles scene objects by id.
type SceneObjects interface {
	SetActive(id string, active bool)
}

type nopPresenter struct{}

func (nopPresenter) ShowLine(string, string, string) {}
func (nopPresenter) HideDialogue()                   {}
func (nopPresenter) ShowChoices([]string)            {}
func (nopPresenter) HideChoices()                    {}
func (nopPresenter) SetQuestText(string, string)     {}
func (nopPresenter) ClearQuestText()                 {}

type nopMovement struct{}

func (nopMovement) DisableMovement() {}
func (nopMovement) EnableMovement()  {}

type zeroResource struct{}

func (zeroResource) CurrentResource() int { return 0 }

type nopObjects struct{}

func (nopObjects) SetActive(string, bool) {}
