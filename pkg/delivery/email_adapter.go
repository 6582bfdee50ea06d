package delivery

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"
	"github.com/mrz1836/postmark"

	"github.com/ecosense/alertkit/pkg/alert"
)

// EmailConfig holds Postmark configuration for the email adapter.
// Tokens are optional so development environments can fall back to the
// DevAdapter; SenderEmail establishes the outbound identity.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"ALERT_SENDER_EMAIL" envDefault:"alerts@ecosense.io"`
}

// AddressResolver maps a platform user to an email address. Account data is
// owned by an external collaborator, so the adapter only depends on this
// lookup function.
type AddressResolver func(ctx context.Context, userID uuid.UUID) (string, error)

// EmailAdapter delivers alerts via Postmark's transactional API. It handles
// only the email channel; Send returns ErrUnknownMethod for anything else so
// miswired routing surfaces immediately instead of silently succeeding.
type EmailAdapter struct {
	client  *postmark.Client
	config  EmailConfig
	resolve AddressResolver
}

// NewEmailAdapter creates a Postmark-backed email adapter.
func NewEmailAdapter(cfg EmailConfig, resolve AddressResolver) (*EmailAdapter, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if resolve == nil {
		return nil, fmt.Errorf("%w: address resolver is required", ErrInvalidConfig)
	}

	return &EmailAdapter{
		client:  postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config:  cfg,
		resolve: resolve,
	}, nil
}

func (e *EmailAdapter) Send(ctx context.Context, userID uuid.UUID, method Method, a alert.Alert) error {
	if method != MethodEmail {
		return fmt.Errorf("%w: email adapter cannot deliver %q", ErrUnknownMethod, method)
	}

	addr, err := e.resolve(ctx, userID)
	if err != nil {
		return errors.Join(ErrNoRecipientAddress, err)
	}

	resp, err := e.client.SendEmail(ctx, postmark.Email{
		From:     e.config.SenderEmail,
		To:       addr,
		Subject:  a.Title,
		Tag:      string(a.Type),
		HTMLBody: renderAlertHTML(a),
	})
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrDeliveryFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}

// renderAlertHTML produces a minimal HTML body for alert emails. Rich
// templating lives in the recommendation-template engine, which is a
// separate collaborator; this body is the plain fallback.
func renderAlertHTML(a alert.Alert) string {
	body := fmt.Sprintf(
		"<h2>%s</h2><p>%s</p><p><strong>Severity:</strong> %s</p>",
		html.EscapeString(a.Title),
		html.EscapeString(a.Message),
		html.EscapeString(string(a.Severity)),
	)
	if a.Pollutant != "" {
		body += fmt.Sprintf(
			"<p><strong>Pollutant:</strong> %s (%.1f %s, threshold %.1f %s)</p>",
			html.EscapeString(a.Pollutant),
			a.CurrentValue, html.EscapeString(a.Unit),
			a.ThresholdValue, html.EscapeString(a.Unit),
		)
	}
	return body
}
