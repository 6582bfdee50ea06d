package delivery

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/alert"
)

// Adapter sends one alert to one user through one channel. Channel-specific
// concerns such as device-token resolution belong to the implementation.
// A failed send must be reported as an error wrapping ErrDeliveryFailed so
// the worker can route it onto the retry path.
type Adapter interface {
	Send(ctx context.Context, userID uuid.UUID, method Method, a alert.Alert) error
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, userID uuid.UUID, method Method, a alert.Alert) error

func (f AdapterFunc) Send(ctx context.Context, userID uuid.UUID, method Method, a alert.Alert) error {
	return f(ctx, userID, method, a)
}

// DevAdapter implements Adapter for local development. It logs every send
// instead of contacting a real channel.
type DevAdapter struct {
	logger *slog.Logger
}

// NewDevAdapter creates a development adapter that logs deliveries.
func NewDevAdapter(logger *slog.Logger) *DevAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevAdapter{logger: logger}
}

func (d *DevAdapter) Send(ctx context.Context, userID uuid.UUID, method Method, a alert.Alert) error {
	d.logger.InfoContext(ctx, "dev delivery",
		slog.String("user_id", userID.String()),
		slog.String("method", string(method)),
		slog.String("alert_id", a.ID.String()),
		slog.String("severity", string(a.Severity)),
		slog.String("title", a.Title))
	return nil
}
