package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/models"
)

func TestPingerSendsAfterDelayAndInterval(t *testing.T) {
	remote := &fakeRemote{}
	p := NewPinger(remote, goodFix(12.9, 77.6), sessionSource(testSession()),
		5*time.Millisecond, 10*time.Millisecond)

	p.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	p.Stop()

	require.GreaterOrEqual(t, remote.pings, 2, "initial ping plus at least one tick")
}

func TestPingerStopsCleanly(t *testing.T) {
	remote := &fakeRemote{}
	p := NewPinger(remote, goodFix(12.9, 77.6), sessionSource(testSession()),
		time.Millisecond, 5*time.Millisecond)

	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	sent := remote.pings

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, sent, remote.pings, "no pings after Stop")

	// Stop is idempotent.
	p.Stop()
}

func TestPingerSwallowsFailures(t *testing.T) {
	remote := &fakeRemote{pingErr: &fielderr.RemoteError{HTTPStatus: 500}}
	p := NewPinger(remote, goodFix(12.9, 77.6), sessionSource(testSession()),
		time.Millisecond, 5*time.Millisecond)

	p.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	p.Stop()

	require.GreaterOrEqual(t, remote.pings, 2, "failures must not stop the loop")
}

func TestPingerSkipsWithoutSessionOrFix(t *testing.T) {
	remote := &fakeRemote{}
	p := NewPinger(remote, goodFix(12.9, 77.6), sessionSource(&models.Session{}),
		time.Millisecond, 5*time.Millisecond)
	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	require.Zero(t, remote.pings, "incomplete session must not ping")

	remote = &fakeRemote{}
	p = NewPinger(remote, noFix(), sessionSource(testSession()),
		time.Millisecond, 5*time.Millisecond)
	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	require.Zero(t, remote.pings, "no fix means no ping, silently")
}

func TestPingerStartIsIdempotent(t *testing.T) {
	remote := &fakeRemote{}
	p := NewPinger(remote, goodFix(12.9, 77.6), sessionSource(testSession()),
		time.Millisecond, 5*time.Millisecond)

	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx) // second Start must not spawn a second loop
	time.Sleep(12 * time.Millisecond)
	p.Stop()
	require.NotZero(t, remote.pings)
}
