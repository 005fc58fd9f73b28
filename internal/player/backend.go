// Package player provides media player backends that gesture commands act upon.
package player

import (
	"context"
	"errors"
)

// ErrNotReady is returned when the player cannot report a value yet,
// for example while media is still loading.
var ErrNotReady = errors.New("player not ready")

// ErrClosed is returned by operations on a backend after Close.
var ErrClosed = errors.New("player closed")

// Backend is a handle on a running media player.
//
// Volume is expressed in percent (0-100) and position in seconds regardless of the
// player's native units; implementations convert.
type Backend interface {
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, percent int) error
	Position(ctx context.Context) (float64, error)
	SetPosition(ctx context.Context, seconds float64) error
	TogglePause(ctx context.Context) error
	Close() error
}
