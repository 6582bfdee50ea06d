package rule

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/alert"
)

// Store persists notification rules. Production deployments back this with
// the platform's primary database; MemoryStore covers tests and local runs.
type Store interface {
	Create(ctx context.Context, r Rule) error
	Update(ctx context.Context, r Rule) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*Rule, error)

	// FindActiveNear returns active rules whose circle intersects a circle
	// of radiusKm around loc.
	FindActiveNear(ctx context.Context, loc alert.Location, radiusKm float64) ([]Rule, error)
}
