package geolocate

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagip-ph/evaq-engine/app/observability/metrics"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// slowProvider blocks until released, counting acquisitions.
type slowProvider struct {
	calls   atomic.Int64
	release chan struct{}
	pos     types.Position
}

func (p *slowProvider) Current(ctx context.Context) (types.Position, error) {
	p.calls.Add(1)
	select {
	case <-p.release:
		return p.pos, nil
	case <-ctx.Done():
		return types.Position{}, ctx.Err()
	}
}

type errProvider struct{ err error }

func (p errProvider) Current(ctx context.Context) (types.Position, error) {
	return types.Position{}, p.err
}

func TestLocate_StaticProvider(t *testing.T) {
	want := types.Position{Lat: 8.4823, Lon: 124.6478}
	svc := NewServiceImpl(StaticProvider{Position: want}, time.Second, testLogger())

	got, err := svc.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate_ConcurrentCallersJoinOneAcquisition(t *testing.T) {
	provider := &slowProvider{
		release: make(chan struct{}),
		pos:     types.Position{Lat: 10.3, Lon: 123.9},
	}
	svc := NewServiceImpl(provider, time.Second, testLogger())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]types.Position, callers)
	errs := make([]error, callers)

	var entered sync.WaitGroup
	entered.Add(callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			entered.Done()
			results[i], errs[i] = svc.Locate(context.Background())
		}(i)
	}

	// Let every caller reach the in-flight acquisition before releasing it.
	entered.Wait()
	require.Eventually(t, func() bool { return provider.calls.Load() >= 1 },
		time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	assert.EqualValues(t, 1, provider.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, provider.pos, results[i])
	}
}

func TestLocate_CancelledCallerReleasedAcquisitionSurvives(t *testing.T) {
	provider := &slowProvider{
		release: make(chan struct{}),
		pos:     types.Position{Lat: 10.3, Lon: 123.9},
	}
	svc := NewServiceImpl(provider, time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Locate(ctx)
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return provider.calls.Load() >= 1 },
		time.Second, time.Millisecond)

	// A second caller joins the same acquisition.
	secondDone := make(chan struct{})
	var secondPos types.Position
	var secondErr error
	go func() {
		secondPos, secondErr = svc.Locate(context.Background())
		close(secondDone)
	}()
	time.Sleep(20 * time.Millisecond)

	// Cancelling the first caller frees it immediately without tearing
	// down the in-flight acquisition.
	cancel()
	select {
	case err := <-firstDone:
		assert.ErrorIs(t, err, types.ErrGeolocationUnavailable)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller was not released")
	}

	close(provider.release)
	<-secondDone
	require.NoError(t, secondErr)
	assert.Equal(t, provider.pos, secondPos)
	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestLocate_TimeoutMapsToGeolocationTimeout(t *testing.T) {
	provider := &slowProvider{release: make(chan struct{})}
	svc := NewServiceImpl(provider, 10*time.Millisecond, testLogger())

	_, err := svc.Locate(context.Background())
	assert.ErrorIs(t, err, types.ErrGeolocationTimeout)
}

func TestLocate_SentinelErrorsPassThrough(t *testing.T) {
	for _, sentinel := range []error{
		types.ErrGeolocationDenied,
		types.ErrGeolocationTimeout,
		types.ErrGeolocationUnavailable,
	} {
		svc := NewServiceImpl(errProvider{err: sentinel}, time.Second, testLogger())
		_, err := svc.Locate(context.Background())
		assert.ErrorIs(t, err, sentinel)
	}
}

func TestLocate_UnknownErrorMapsToUnavailable(t *testing.T) {
	svc := NewServiceImpl(errProvider{err: errors.New("gnss bridge offline")}, time.Second, testLogger())

	_, err := svc.Locate(context.Background())
	assert.ErrorIs(t, err, types.ErrGeolocationUnavailable)
}
