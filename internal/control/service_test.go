package control

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/gamification-service/internal/activity"
)

type fakeBackend struct {
	statusFn func(ctx context.Context) ([]byte, error)
	toggleFn func(ctx context.Context) ([]byte, error)
}

func (f *fakeBackend) FetchButtonStatus(ctx context.Context) ([]byte, error) { return f.statusFn(ctx) }
func (f *fakeBackend) ToggleButton(ctx context.Context) ([]byte, error)      { return f.toggleFn(ctx) }

func newTestService(t *testing.T, b *fakeBackend) *Service {
	t.Helper()
	svc, err := NewService(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus([]byte(`{"button_status": 1, "task_thread": "<Thread(Thread-1, started)>"}`))
	require.NoError(t, err)
	assert.Equal(t, Status{ButtonStatus: 1, Tracking: true}, st)

	st, err = ParseStatus([]byte(`{"button_status": 0}`))
	require.NoError(t, err)
	assert.False(t, st.Tracking)

	for _, raw := range []string{`{}`, `[]`, `{"button_status": "on"}`} {
		_, err := ParseStatus([]byte(raw))
		assert.ErrorIs(t, err, activity.ErrMalformedPayload, raw)
	}
}

func TestToggle(t *testing.T) {
	on := 0
	svc := newTestService(t, &fakeBackend{
		statusFn: func(context.Context) ([]byte, error) {
			if on == 1 {
				return []byte(`{"button_status": 1}`), nil
			}
			return []byte(`{"button_status": 0}`), nil
		},
		toggleFn: func(context.Context) ([]byte, error) {
			on = 1 - on
			if on == 1 {
				return []byte(`{"msg": "Tracker started"}`), nil
			}
			return []byte(`{"msg": "Tracker stopped"}`), nil
		},
	})
	ctx := context.Background()

	st, err := svc.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, st.Tracking)
	assert.Equal(t, "Tracker started", st.Message)

	st, err = svc.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, st.Tracking)
	assert.Equal(t, "Tracker stopped", st.Message)
}

func TestToggle_BackendError(t *testing.T) {
	svc := newTestService(t, &fakeBackend{
		toggleFn: func(context.Context) ([]byte, error) { return nil, errors.New("connection refused") },
	})
	_, err := svc.Toggle(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewService_RequiresBackend(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)
}
