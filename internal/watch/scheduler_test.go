package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_ScheduleRebuild(t *testing.T) {
	c := newTestController(t, newFakeSource(), &fakeRunner{}, &fakeNotifier{}, Options{})
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	id, err := s.ScheduleRebuild("*/5 * * * *", c, []string{"render-pages"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	s.Start()
}

func TestScheduler_RejectsInvalidCron(t *testing.T) {
	c := newTestController(t, newFakeSource(), &fakeRunner{}, &fakeNotifier{}, Options{})
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	_, err = s.ScheduleRebuild("not a cron", c, []string{"render-pages"})
	require.Error(t, err)
}
