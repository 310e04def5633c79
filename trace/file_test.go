package trace

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFileSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	rec := NewRecorder(zaptest.NewLogger(t), sink)
	root := rec.StartSpan("run", nil)
	root.SetAttribute("max_rounds", 3)
	turn := rec.StartSpan("turn", root)
	turn.AddEvent("reply", map[string]any{"agent": "story_writer"})
	turn.EndOK()
	root.End(StatusError, "aborted")

	require.NoError(t, rec.Close(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rows []Span
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s Span
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &s))
		rows = append(rows, s)
	}
	require.NoError(t, scanner.Err())

	// only closed spans are written, children first
	require.Len(t, rows, 2)
	assert.Equal(t, "turn", rows[0].Name)
	assert.Equal(t, root.ID, rows[0].ParentID)
	assert.Equal(t, StatusOK, rows[0].Status)
	require.Len(t, rows[0].Events, 1)
	assert.Equal(t, "reply", rows[0].Events[0].Name)

	assert.Equal(t, "run", rows[1].Name)
	assert.Equal(t, StatusError, rows[1].Status)
	assert.Equal(t, "aborted", rows[1].StatusDescription)
	assert.EqualValues(t, 3, rows[1].Attributes["max_rounds"])
}

func TestFileSinkAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.jsonl")

	for i := 0; i < 2; i++ {
		sink, err := NewFileSink(path)
		require.NoError(t, err)
		rec := NewRecorder(zaptest.NewLogger(t), sink)
		rec.StartSpan("run", nil).EndOK()
		require.NoError(t, rec.Close(context.Background()))
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 2, lines)
}
