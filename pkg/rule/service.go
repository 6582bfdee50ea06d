package rule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service is the rule-management entry point exposed to the API layer.
// It validates on every write; stores never see a malformed rule.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceClock overrides the time source.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a rule-management service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrStoreNil
	}

	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates the rule, assigns identity and timestamps, and persists
// it. Validation errors wrap ErrValidation and propagate to the caller.
func (s *Service) Create(ctx context.Context, r Rule) (*Rule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	r.ID = uuid.New()
	r.Active = true
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create rule for user %s: %w", r.UserID, err)
	}

	s.logger.InfoContext(ctx, "notification rule created",
		slog.String("rule_id", r.ID.String()),
		slog.String("user_id", r.UserID.String()),
		slog.Float64("radius_km", r.Location.RadiusKm))

	return &r, nil
}

// Update validates and persists changes to an existing rule.
func (s *Service) Update(ctx context.Context, r Rule) (*Rule, error) {
	if r.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: rule id is required", ErrValidation)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	r.UpdatedAt = s.now()
	if err := s.store.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update rule %s: %w", r.ID, err)
	}
	return &r, nil
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "notification rule deleted", slog.String("rule_id", id.String()))
	return nil
}

// Get fetches a rule by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return s.store.Get(ctx, id)
}
