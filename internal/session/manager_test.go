package session

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/audio-cnn-visualizer/internal/metrics"
	"github.com/skypro1111/audio-cnn-visualizer/internal/view"
)

func newTestManager(t *testing.T, timeout time.Duration) (*Manager, *metrics.Metrics) {
	t.Helper()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	mgr := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)), timeout, m)
	t.Cleanup(mgr.Stop)
	return mgr, m
}

func TestCreateAndGet(t *testing.T) {
	mgr, m := newTestManager(t, time.Minute)

	s := mgr.Create()
	require.NotEmpty(t, s.ID)

	state, err := mgr.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, state.ID)
	assert.False(t, state.Busy)
	assert.Nil(t, state.View)

	assert.Equal(t, 1, mgr.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	_, err = mgr.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBeginWhileInFlightIsBusy(t *testing.T) {
	mgr, m := newTestManager(t, time.Minute)
	s := mgr.Create()

	ticket, err := mgr.Begin(s.ID, "dog.wav")
	require.NoError(t, err)

	_, err = mgr.Begin(s.ID, "cat.wav")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusyRejections))

	state, _ := mgr.Get(s.ID)
	assert.True(t, state.Busy)
	assert.Equal(t, "dog.wav", state.FileName)

	require.True(t, mgr.Commit(ticket, &view.View{FileName: "dog.wav"}, nil))

	_, err = mgr.Begin(s.ID, "cat.wav")
	assert.NoError(t, err)
}

func TestBeginClearsDisplayedView(t *testing.T) {
	mgr, _ := newTestManager(t, time.Minute)
	s := mgr.Create()

	ticket, _ := mgr.Begin(s.ID, "a.wav")
	mgr.Commit(ticket, &view.View{FileName: "a.wav"}, nil)

	state, _ := mgr.Get(s.ID)
	require.NotNil(t, state.View)

	_, err := mgr.Begin(s.ID, "b.wav")
	require.NoError(t, err)

	state, _ = mgr.Get(s.ID)
	assert.Nil(t, state.View)
	assert.True(t, state.Busy)
}

func TestCommitFailure(t *testing.T) {
	mgr, _ := newTestManager(t, time.Minute)
	s := mgr.Create()

	ticket, _ := mgr.Begin(s.ID, "a.wav")
	require.True(t, mgr.Commit(ticket, nil, errors.New("Audio analysis failed")))

	state, _ := mgr.Get(s.ID)
	assert.False(t, state.Busy)
	assert.Nil(t, state.View)
	assert.Equal(t, "Audio analysis failed", state.Error)
}

func TestLastResponseWins(t *testing.T) {
	mgr, m := newTestManager(t, time.Minute)
	s := mgr.Create()

	old, _ := mgr.Begin(s.ID, "old.wav")
	require.NoError(t, mgr.Reset(s.ID))

	current, err := mgr.Begin(s.ID, "new.wav")
	require.NoError(t, err)
	require.True(t, mgr.Commit(current, &view.View{FileName: "new.wav"}, nil))

	// the superseded request completes late and must not replace the display
	assert.False(t, mgr.Commit(old, &view.View{FileName: "old.wav"}, nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleSuperseded))

	state, _ := mgr.Get(s.ID)
	require.NotNil(t, state.View)
	assert.Equal(t, "new.wav", state.View.FileName)

	// committing the same ticket twice is a no-op
	assert.False(t, mgr.Commit(current, &view.View{FileName: "again.wav"}, nil))
}

func TestCommitAfterRemove(t *testing.T) {
	mgr, _ := newTestManager(t, time.Minute)
	s := mgr.Create()

	ticket, _ := mgr.Begin(s.ID, "a.wav")
	require.NoError(t, mgr.Remove(s.ID))

	assert.False(t, mgr.Commit(ticket, &view.View{}, nil))
	assert.ErrorIs(t, mgr.Remove(s.ID), ErrNotFound)
	assert.ErrorIs(t, mgr.Reset(s.ID), ErrNotFound)
}

func TestCleanupExpiredSessions(t *testing.T) {
	shortTimeout := 100 * time.Millisecond
	mgr, m := newTestManager(t, shortTimeout)

	idle := mgr.Create()
	busy := mgr.Create()
	_, err := mgr.Begin(busy.ID, "slow.wav")
	require.NoError(t, err)

	time.Sleep(shortTimeout + 50*time.Millisecond)
	fresh := mgr.Create()
	mgr.cleanupExpiredSessions()

	_, err = mgr.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.Get(busy.ID)
	assert.NoError(t, err, "sessions with an analysis in flight are kept")

	_, err = mgr.Get(fresh.ID)
	assert.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsExpired))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestSessionConcurrency(t *testing.T) {
	mgr, _ := newTestManager(t, time.Minute)
	s := mgr.Create()

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mgr.Begin(s.ID, "x.wav"); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started, "only one analysis may be in flight")
}
