package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/wallet/internal/models"
)

type recordingChannel struct {
	name string
	err  error
	wait time.Duration

	mu     sync.Mutex
	got    []Message
	closed atomic.Bool
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(ctx context.Context, msg Message) error {
	if c.wait > 0 {
		select {
		case <-time.After(c.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	c.got = append(c.got, msg)
	c.mu.Unlock()
	return c.err
}

func (c *recordingChannel) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *recordingChannel) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.got...)
}

type panickingChannel struct{}

func (panickingChannel) Name() string { return "panic" }

func (panickingChannel) Deliver(context.Context, Message) error { panic("boom") }

// stuckChannel blocks until release is closed, whatever its context says.
type stuckChannel struct {
	release chan struct{}
}

func (stuckChannel) Name() string { return "stuck" }

func (c stuckChannel) Deliver(context.Context, Message) error {
	<-c.release
	return nil
}

func TestNew(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	n := New(models.NotificationSuccess, "Recharge", "Added 100 DZD")

	_, err := uuid.Parse(n.ID)
	require.NoError(t, err)
	require.Equal(t, models.NotificationSuccess, n.Type)
	require.Equal(t, "Recharge", n.Title)
	require.Equal(t, "Added 100 DZD", n.Message)
	require.False(t, n.IsRead)
	require.Equal(t, time.UTC, n.CreatedAt.Location())
	require.False(t, n.CreatedAt.Before(before.Add(-time.Second)))

	other := New(models.NotificationSuccess, "Recharge", "Added 100 DZD")
	require.NotEqual(t, n.ID, other.ID)
}

func TestDispatcher_Show(t *testing.T) {
	t.Parallel()

	t.Run("fans out to every channel", func(t *testing.T) {
		t.Parallel()

		a := &recordingChannel{name: "a"}
		b := &recordingChannel{name: "b"}
		d := NewDispatcher(WithChannel(a), WithChannel(b))

		d.Show(context.Background(), "Hello", "World")

		for _, ch := range []*recordingChannel{a, b} {
			got := ch.messages()
			require.Len(t, got, 1)
			require.Equal(t, "Hello", got[0].Title)
			require.Equal(t, "World", got[0].Body)
			require.Equal(t, models.NotificationInfo, got[0].Type)
			require.False(t, got[0].At.IsZero())
		}
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		t.Parallel()

		failing := &recordingChannel{name: "failing", err: errors.New("unreachable")}
		ok := &recordingChannel{name: "ok"}
		d := NewDispatcher(WithChannel(failing), WithChannel(panickingChannel{}), WithChannel(ok))

		require.NotPanics(t, func() {
			d.Show(context.Background(), "t", "b")
		})
		require.Len(t, ok.messages(), 1)
	})

	t.Run("slow channel is cut off", func(t *testing.T) {
		t.Parallel()

		slow := &recordingChannel{name: "slow", wait: time.Minute}
		d := NewDispatcher(WithChannel(slow), WithTimeout(20*time.Millisecond))

		start := time.Now()
		d.Show(context.Background(), "t", "b")
		require.Less(t, time.Since(start), 5*time.Second)
		require.Empty(t, slow.messages())
	})

	t.Run("channel ignoring its context does not block", func(t *testing.T) {
		t.Parallel()

		stuck := stuckChannel{release: make(chan struct{})}
		t.Cleanup(func() { close(stuck.release) })
		ok := &recordingChannel{name: "ok"}
		d := NewDispatcher(WithChannel(stuck), WithChannel(ok), WithTimeout(20*time.Millisecond))

		returned := make(chan struct{})
		go func() {
			d.Show(context.Background(), "t", "b")
			close(returned)
		}()
		select {
		case <-returned:
		case <-time.After(5 * time.Second):
			t.Fatal("Show did not return")
		}
		require.Len(t, ok.messages(), 1)
	})

	t.Run("cancelled caller still delivers", func(t *testing.T) {
		t.Parallel()

		ch := &recordingChannel{name: "c"}
		d := NewDispatcher(WithChannel(ch))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.Show(ctx, "t", "b")
		require.Len(t, ch.messages(), 1)
	})

	t.Run("nil dispatcher is a no-op", func(t *testing.T) {
		t.Parallel()

		var d *Dispatcher
		require.NotPanics(t, func() {
			d.Show(context.Background(), "t", "b")
		})
	})
}

func TestDispatcher_ShowNotification(t *testing.T) {
	t.Parallel()

	ch := &recordingChannel{name: "c"}
	d := NewDispatcher(WithChannel(ch))

	n := New(models.NotificationSecurity, "New login", "Signed in from a new device")
	d.ShowNotification(context.Background(), n)

	got := ch.messages()
	require.Len(t, got, 1)
	require.Equal(t, models.NotificationSecurity, got[0].Type)
	require.Equal(t, n.CreatedAt, got[0].At)
}

func TestDispatcher_Close(t *testing.T) {
	t.Parallel()

	ch := &recordingChannel{name: "c"}
	d := NewDispatcher(WithChannel(ch), WithChannel(nil))

	require.NoError(t, d.Close())
	require.True(t, ch.closed.Load())
}
