package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDeck = `
start: only
passages:
  - name: only
    steps:
      - text: "Done already."
`

func writeDeck(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildStory(t *testing.T) {
	st, err := BuildStory(writeDeck(t, minimalDeck))
	require.NoError(t, err)
	require.NoError(t, st.Begin())
	assert.Equal(t, "only", st.CurrentPassage())
}

func TestBuildStoryMissingFile(t *testing.T) {
	_, err := BuildStory(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	assert.True(t, Logger(true).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, Logger(false).Enabled(context.Background(), slog.LevelDebug))
}

func TestSignalContextCancel(t *testing.T) {
	sc := NewSignalContext(context.Background())
	assert.Nil(t, sc.Signal())
	sc.Cancel()
	<-sc.Done()
}
