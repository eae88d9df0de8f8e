package jsonout

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
)

func TestIndexTo(t *testing.T) {
	idx := index.New()
	idx.AddAll([]string{"fox", "run"}, "b.txt", 1)
	idx.Add("fox", "a.txt", 3)

	var buf bytes.Buffer
	require.NoError(t, IndexTo(&buf, idx))
	want := "{\n" +
		"\t\"fox\": {\n" +
		"\t\t\"a.txt\": [\n\t\t\t3\n\t\t],\n" +
		"\t\t\"b.txt\": [\n\t\t\t1\n\t\t]\n" +
		"\t},\n" +
		"\t\"run\": {\n" +
		"\t\t\"b.txt\": [\n\t\t\t2\n\t\t]\n" +
		"\t}\n" +
		"}\n"
	assert.Equal(t, want, buf.String())

	var decoded map[string]map[string][]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, idx.Snapshot(), decoded)
}

func TestIndexToEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, IndexTo(&buf, index.New()))
	assert.Equal(t, "{}\n", buf.String())
}

func TestCountsTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CountsTo(&buf, map[string]int{"b.txt": 3, "a.txt": 2}))
	assert.Equal(t, "{\n\t\"a.txt\": 2,\n\t\"b.txt\": 3\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, CountsTo(&buf, nil))
	assert.Equal(t, "{}\n", buf.String())
}

func TestResultsToPrintsEightDecimals(t *testing.T) {
	var buf bytes.Buffer
	err := ResultsTo(&buf, map[string][]index.Result{
		"fox": {
			{Location: "a.txt", Count: 1, Score: 0.5},
			{Location: "b.txt", Count: 1, Score: 1.0 / 3},
		},
		"cat": {},
	})
	require.NoError(t, err)
	want := "{\n" +
		"\t\"cat\": [],\n" +
		"\t\"fox\": [\n" +
		"\t\t{\n\t\t\t\"count\": 1,\n\t\t\t\"score\": 0.50000000,\n\t\t\t\"where\": \"a.txt\"\n\t\t},\n" +
		"\t\t{\n\t\t\t\"count\": 1,\n\t\t\t\"score\": 0.33333333,\n\t\t\t\"where\": \"b.txt\"\n\t\t}\n" +
		"\t]\n" +
		"}\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteFilesAtomically(t *testing.T) {
	dir := t.TempDir()
	idx := index.NewConcurrent()
	idx.Add("fox", "a.txt", 1)

	indexPath := filepath.Join(dir, "out", "index.json")
	require.NoError(t, WriteIndex(indexPath, idx))
	countsPath := filepath.Join(dir, "counts.json")
	require.NoError(t, WriteCounts(countsPath, idx.Counts()))
	resultsPath := filepath.Join(dir, "results.json")
	require.NoError(t, WriteResults(resultsPath, map[string][]index.Result{"fox": idx.ExactSearch([]string{"fox"})}))

	data, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"fox\"")

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.Equal(t, "index.json", entries[0].Name())

	data, err = os.ReadFile(resultsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1.00000000")
}
