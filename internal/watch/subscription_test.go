package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscription_Match(t *testing.T) {
	s := Subscription{Name: "styles", BaseDir: "/site", Patterns: []string{"assets/css/**/*.css"}, Tasks: []string{"compile-styles"}}.normalized()

	assert.True(t, s.Match("/site/assets/css/app.css"))
	assert.True(t, s.Match("/site/assets/css/partials/_buttons.css"))
	assert.False(t, s.Match("/site/assets/img/logo.png"))
	assert.False(t, s.Match("/other/assets/css/app.css"))
	assert.False(t, s.Match("/site"))
}

func TestSubscription_Validate(t *testing.T) {
	require.NoError(t, Subscription{Name: "out", Patterns: []string{"**"}, ReloadOnly: true}.Validate())
	require.Error(t, Subscription{Patterns: []string{"**"}, ReloadOnly: true}.Validate())
	require.Error(t, Subscription{Name: "x", Tasks: []string{"t"}}.Validate())
	require.Error(t, Subscription{Name: "x", Patterns: []string{"**"}}.Validate())
	require.Error(t, Subscription{Name: "x", Patterns: []string{"a/["}, Tasks: []string{"t"}}.Validate())
}

func TestShouldIgnoreEvent(t *testing.T) {
	for _, p := range []string{"/a/.hidden", "/a/file.swp", "/a/file~", "/a/#file#", "/a/Thumbs.db"} {
		assert.True(t, shouldIgnoreEvent(p), p)
	}
	assert.False(t, shouldIgnoreEvent("/a/index.html"))
}
