package livereload

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/events"
)

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestNATSBridge_PublishUsesDefaultSubject(t *testing.T) {
	pub := &fakePublisher{}
	b := NewNATSBridge(pub, "", nil)

	require.NoError(t, b.Publish(ReloadEvent{Kind: KindFullReload, RunID: "r1"}))
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, DefaultSubject, pub.subjects[0])

	var evt ReloadEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &evt))
	assert.Equal(t, KindFullReload, evt.Kind)
	assert.Equal(t, "r1", evt.RunID)
}

func TestNATSBridge_PublishError(t *testing.T) {
	b := NewNATSBridge(&fakePublisher{err: errors.New("no responders")}, "site.reload", nil)
	err := b.Publish(ReloadEvent{Kind: KindFullReload})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no responders")
}

func TestNATSBridge_AttachMirrorsBusEvents(t *testing.T) {
	pub := &fakePublisher{}
	b := NewNATSBridge(pub, "site.reload", nil)
	bus := events.NewBus()
	defer bus.Close()

	detach := b.Attach(bus)
	require.NoError(t, bus.Publish(context.Background(), ReloadEvent{Kind: KindStyleInjection}))
	require.NoError(t, bus.Publish(context.Background(), ReloadEvent{Kind: KindFullReload}))
	detach()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{"site.reload", "site.reload"}, pub.subjects)
}
