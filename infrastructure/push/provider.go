package push

import (
	"context"
	"errors"

	"ripple/internal/entity"
)

var (
	ErrUnsupported      = errors.New("push: not supported on this platform")
	ErrPermissionDenied = errors.New("push: permission denied")
)

// Provider is the seam to the platform push service. The real FCM/APNS
// client lives outside this module; the session only needs token
// issuance and a foreground message stream.
type Provider interface {
	Supported() bool
	// RequestToken asks the platform for a device token, prompting for
	// permission if needed. Returns ErrPermissionDenied when the user
	// declines and ErrUnsupported when the platform cannot push.
	RequestToken(ctx context.Context) (string, error)
	// Messages delivers foreground push payloads. The channel closes
	// when the provider shuts down.
	Messages() <-chan entity.PushPayload
}

// Unsupported is the degraded provider for platforms without push.
type Unsupported struct{}

func NewUnsupported() Unsupported { return Unsupported{} }

func (Unsupported) Supported() bool { return false }

func (Unsupported) RequestToken(ctx context.Context) (string, error) {
	return "", ErrUnsupported
}

func (Unsupported) Messages() <-chan entity.PushPayload {
	ch := make(chan entity.PushPayload)
	close(ch)
	return ch
}
