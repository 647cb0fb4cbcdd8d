package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadJSONRoundtrip(t *testing.T) {
	s := New(t.TempDir())
	dir := s.ScreenDir("2026-08-28")

	in := map[string]any{"trade_date": "2026-08-28", "count": 3.0}
	require.NoError(t, s.WriteJSON(dir, "A_candidates.json", in))
	assert.True(t, s.Exists(dir, "A_candidates.json"))

	var out map[string]any
	require.NoError(t, s.ReadJSON(dir, "A_candidates.json", &out))
	assert.Equal(t, in, out)
}

func TestWriteJSONOverwritesExisting(t *testing.T) {
	s := New(t.TempDir())
	dir := s.ScreenDir("2026-08-28")

	require.NoError(t, s.WriteJSON(dir, "A_candidates.json", map[string]int{"count": 1}))
	require.NoError(t, s.WriteJSON(dir, "A_candidates.json", map[string]int{"count": 2}))

	var out map[string]int
	require.NoError(t, s.ReadJSON(dir, "A_candidates.json", &out))
	assert.Equal(t, 2, out["count"])

	// No temp files should survive a completed write.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteText(t *testing.T) {
	s := New(t.TempDir())
	dir := filepath.Join(s.ScreenDir("2026-08-28"), "story_prompt_io", "600519")

	require.NoError(t, s.WriteText(dir, "1_narrative_input.txt", "证据清单"))
	data, err := os.ReadFile(filepath.Join(dir, "1_narrative_input.txt"))
	require.NoError(t, err)
	assert.Equal(t, "证据清单", string(data))
}

func TestReadJSONMissingFile(t *testing.T) {
	s := New(t.TempDir())
	var out map[string]any
	err := s.ReadJSON(s.ScreenDir("2026-08-28"), "A_candidates.json", &out)
	assert.Error(t, err)
}

func TestScreenDates(t *testing.T) {
	s := New(t.TempDir())
	for _, d := range []string{"2026-08-26", "2026-08-28", "2026-08-25"} {
		require.NoError(t, s.WriteJSON(s.ScreenDir(d), "A_candidates.json", map[string]int{}))
	}
	// Non-date directories are ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "screener", "scratch"), 0755))

	dates, err := s.ScreenDates("2026-08-27")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-25", "2026-08-26"}, dates)

	dates, err = s.ScreenDates("2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-25", "2026-08-26", "2026-08-28"}, dates)
}

func TestScreenDatesNoRuns(t *testing.T) {
	s := New(t.TempDir())
	dates, err := s.ScreenDates("2026-08-28")
	require.NoError(t, err)
	assert.Empty(t, dates)
}
