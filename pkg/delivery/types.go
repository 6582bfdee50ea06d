package delivery

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecosense/alertkit/pkg/alert"
)

// Method represents a notification delivery channel.
type Method string

const (
	MethodPush  Method = "push"
	MethodEmail Method = "email"
	MethodSMS   Method = "sms"
)

// Valid checks if the method is one of the known channels.
func (m Method) Valid() bool {
	switch m {
	case MethodPush, MethodEmail, MethodSMS:
		return true
	}
	return false
}

// ParseMethod converts a string into a Method, case-insensitively.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

// Task is a unit of delivery work: send this alert to these users via these
// methods. Tasks are created when an alert matches at least one notification
// rule and are mutated only by the worker (retry bookkeeping).
type Task struct {
	ID            uuid.UUID   `json:"id"`
	Alert         alert.Alert `json:"alert"`
	TargetUserIDs []uuid.UUID `json:"target_user_ids"`
	Methods       []Method    `json:"delivery_methods"`
	RetryCount    int         `json:"retry_count"`
	MaxRetries    int         `json:"max_retries"`

	// Delivered records (user, method) pairs already sent in earlier
	// attempts, so a retried task never re-sends a pair that succeeded.
	Delivered []string `json:"delivered,omitempty"`

	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Pair identifies one (user, method) delivery within a task.
type Pair struct {
	UserID uuid.UUID
	Method Method
}

func pairKey(userID uuid.UUID, method Method) string {
	return userID.String() + "|" + string(method)
}

// PendingPairs returns the (user, method) pairs that have not yet been
// delivered successfully.
func (t *Task) PendingPairs() []Pair {
	done := make(map[string]struct{}, len(t.Delivered))
	for _, k := range t.Delivered {
		done[k] = struct{}{}
	}

	var pairs []Pair
	for _, uid := range t.TargetUserIDs {
		for _, m := range t.Methods {
			if _, ok := done[pairKey(uid, m)]; ok {
				continue
			}
			pairs = append(pairs, Pair{UserID: uid, Method: m})
		}
	}
	return pairs
}

// MarkDelivered records a successful (user, method) delivery.
func (t *Task) MarkDelivered(userID uuid.UUID, method Method) {
	key := pairKey(userID, method)
	for _, k := range t.Delivered {
		if k == key {
			return
		}
	}
	t.Delivered = append(t.Delivered, key)
}

// RetriesExhausted reports whether the task has used up its retry budget.
func (t *Task) RetriesExhausted() bool {
	return t.RetryCount > t.MaxRetries
}
