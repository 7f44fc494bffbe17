// Package providers mirrors booking lifecycle changes to third-party
// ticket sources. A ticket type sourced from an external provider names it
// in external_provider; the registry resolves that name to a client.
package providers

import (
	"context"
	"fmt"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
)

// Sync actions sent to a provider.
const (
	ActionConfirm = "confirm"
	ActionCancel  = "cancel"
)

// Client is the capability one external provider exposes.
type Client interface {
	Name() string
	Sync(ctx context.Context, booking *models.Booking, action string) error
}

// Registry holds the configured provider clients keyed by name.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}
	return r
}

// ForName resolves a provider client by its configured name.
func (r *Registry) ForName(name string) (Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown ticket provider: %s", name)
	}
	return c, nil
}
