package cart

import (
	"context"
	"errors"
)

// ErrStateNotFound is returned by a StateRepository when no cart is stored.
var ErrStateNotFound = errors.New("cart state not found")

// StateRepository persists cart state between requests.
type StateRepository interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, sessionID string) error
}
