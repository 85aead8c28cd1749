package geo

import (
	"context"
	"errors"
	"testing"

	"fieldtrack/internal/fielderr"
)

func TestStaticProviderGrantsPermission(t *testing.T) {
	p := &StaticProvider{Latitude: 12.9716, Longitude: 77.5946, Accuracy: 10}

	granted, err := p.RequestPermission(context.Background())
	if err != nil {
		t.Fatalf("RequestPermission() error = %v", err)
	}
	if !granted {
		t.Fatal("static provider must always grant permission")
	}
}

func TestStaticProviderCurrentFix(t *testing.T) {
	p := &StaticProvider{Latitude: 12.9716, Longitude: 77.5946, Accuracy: 10}

	fix, err := p.CurrentFix(context.Background(), DefaultFixTimeout)
	if err != nil {
		t.Fatalf("CurrentFix() error = %v", err)
	}
	if fix.Latitude != 12.9716 || fix.Longitude != 77.5946 {
		t.Errorf("CurrentFix() = (%v, %v), want configured position", fix.Latitude, fix.Longitude)
	}
	if fix.CapturedAt.IsZero() {
		t.Error("CurrentFix() must timestamp the fix")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.CurrentFix(ctx, DefaultFixTimeout); !errors.Is(err, fielderr.ErrLocationUnavailable) {
		t.Errorf("cancelled context: got %v, want ErrLocationUnavailable", err)
	}
}
