package geo

import (
	"context"
	"time"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/models"
)

// DefaultFixTimeout bounds how long a transition waits for a location fix.
const DefaultFixTimeout = 10 * time.Second

// Provider wraps device location permission and fix acquisition.
// Implementations must return fielderr.ErrLocationUnavailable when no fix
// can be produced within the timeout and fielderr.ErrPermissionDenied when
// the user refused the permission prompt.
type Provider interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentFix(ctx context.Context, timeout time.Duration) (*models.Fix, error)
}

// StaticProvider always reports a fixed position. Useful for devserver runs
// and desktop testing where no location hardware exists.
type StaticProvider struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

func (p *StaticProvider) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (p *StaticProvider) CurrentFix(ctx context.Context, timeout time.Duration) (*models.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nil, fielderr.ErrLocationUnavailable
	}
	return &models.Fix{
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		Accuracy:   p.Accuracy,
		CapturedAt: time.Now(),
	}, nil
}
