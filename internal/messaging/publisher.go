package messaging

import (
	"context"

	"github.com/kizunalab/machiba/internal/domain"
)

// Publisher defines the interface for publishing recorded access events to
// downstream consumers
type Publisher interface {
	// PublishAccessEvent publishes one recorded access
	PublishAccessEvent(ctx context.Context, event *domain.AccessEvent) error

	// Close closes the underlying connection
	Close()
}
