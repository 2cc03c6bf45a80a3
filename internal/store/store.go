// Package store provides state persistence interfaces and implementations.
package store

import (
	"context"
	"time"
)

// StateStore persists the engine state. Load is called once at startup and
// Save at the end of every tick.
type StateStore interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
	Close() error
}

// CommandKind names a control command sent to a running engine.
type CommandKind string

const (
	CommandPause     CommandKind = "pause"
	CommandResume    CommandKind = "resume"
	CommandLiquidate CommandKind = "liquidate"
)

// Valid reports whether k is a known command.
func (k CommandKind) Valid() bool {
	switch k {
	case CommandPause, CommandResume, CommandLiquidate:
		return true
	}
	return false
}

// Command is a queued control request.
type Command struct {
	ID        int64       `json:"id"`
	Kind      CommandKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

// CommandQueue carries control commands from the CLI to the engine. The engine
// drains it at the start of each tick so it stays the only writer of State.
type CommandQueue interface {
	Enqueue(ctx context.Context, kind CommandKind) (int64, error)
	Drain(ctx context.Context) ([]Command, error)
}
