// Package event carries application events published by the container
// facade and by application components sharing its publisher.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is anything the publisher can dispatch.
type Event interface {
	EventID() string
	OccurredAt() time.Time
}

// Base carries the identity every event shares. Embed it:
//
//	type OrderPlaced struct {
//	    event.Base
//	    OrderID string
//	}
type Base struct {
	ID string
	At time.Time
}

// NewBase stamps a fresh event identity.
func NewBase() Base {
	return Base{ID: uuid.NewString(), At: time.Now()}
}

func (b Base) EventID() string       { return b.ID }
func (b Base) OccurredAt() time.Time { return b.At }

// ContextRefreshed is published once the container finished its refresh.
type ContextRefreshed struct {
	Base
	Definitions int
}

// NewContextRefreshed builds the refresh notification.
func NewContextRefreshed(definitions int) ContextRefreshed {
	return ContextRefreshed{Base: NewBase(), Definitions: definitions}
}

// ContextClosed is published after the destruction pass completed.
type ContextClosed struct {
	Base
	Destroyed int
}

// NewContextClosed builds the shutdown notification.
func NewContextClosed(destroyed int) ContextClosed {
	return ContextClosed{Base: NewBase(), Destroyed: destroyed}
}
