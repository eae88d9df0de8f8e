// Package jsonout writes the inverted index, the word count table and query
// results as tab-indented JSON. Object keys are always sorted and scores are
// printed with exactly eight decimal places, so equal data always produces
// byte-identical output.
package jsonout

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/index"
)

const indent = "\t"

// Score is a float64 that marshals with eight decimal places.
type Score float64

func (s Score) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(s), 'f', 8, 64)), nil
}

type result struct {
	Count int    `json:"count"`
	Score Score  `json:"score"`
	Where string `json:"where"`
}

// IndexTo streams idx to w as {word: {location: [positions]}}.
func IndexTo(w io.Writer, idx *index.InvertedIndex) error {
	bw := bufio.NewWriter(w)
	words := idx.Words()
	if len(words) == 0 {
		bw.WriteString("{}\n")
		return bw.Flush()
	}
	bw.WriteString("{")
	for n, word := range words {
		if n > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n" + indent)
		if err := writeKey(bw, word); err != nil {
			return err
		}
		bw.WriteString("{")
		for m, location := range idx.Locations(word) {
			if m > 0 {
				bw.WriteString(",")
			}
			bw.WriteString("\n" + indent + indent)
			if err := writeKey(bw, location); err != nil {
				return err
			}
			writePositions(bw, idx.Positions(word, location), 2)
		}
		bw.WriteString("\n" + indent + "}")
	}
	bw.WriteString("\n}\n")
	return bw.Flush()
}

// CountsTo writes the word count table to w.
func CountsTo(w io.Writer, counts map[string]int) error {
	if counts == nil {
		counts = map[string]int{}
	}
	return encode(w, counts)
}

// ResultsTo writes query results keyed by canonical query to w. Each list is
// written in the order given.
func ResultsTo(w io.Writer, results map[string][]index.Result) error {
	out := make(map[string][]result, len(results))
	for query, list := range results {
		converted := make([]result, 0, len(list))
		for _, r := range list {
			converted = append(converted, result{
				Count: r.Count,
				Score: Score(r.Score),
				Where: r.Location,
			})
		}
		out[query] = converted
	}
	return encode(w, out)
}

// WriteIndex writes the index held by v to path. The write happens inside
// v.View, so a shared index stays read-locked for its duration.
func WriteIndex(path string, v index.Viewer) error {
	return writeFile(path, func(w io.Writer) error {
		return v.View(func(idx *index.InvertedIndex) error {
			return IndexTo(w, idx)
		})
	})
}

// WriteCounts writes counts to path.
func WriteCounts(path string, counts map[string]int) error {
	return writeFile(path, func(w io.Writer) error {
		return CountsTo(w, counts)
	})
}

// WriteResults writes results to path.
func WriteResults(path string, results map[string][]index.Result) error {
	return writeFile(path, func(w io.Writer) error {
		return ResultsTo(w, results)
	})
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

func writeKey(bw *bufio.Writer, key string) error {
	quoted, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("quoting key %q: %w", key, err)
	}
	bw.Write(quoted)
	bw.WriteString(": ")
	return nil
}

func writePositions(bw *bufio.Writer, positions []int, level int) {
	if len(positions) == 0 {
		bw.WriteString("[]")
		return
	}
	bw.WriteString("[")
	for n, p := range positions {
		if n > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n")
		for i := 0; i <= level; i++ {
			bw.WriteString(indent)
		}
		bw.WriteString(strconv.Itoa(p))
	}
	bw.WriteString("\n")
	for i := 0; i < level; i++ {
		bw.WriteString(indent)
	}
	bw.WriteString("]")
}

// writeFile writes through a temporary file in the target directory and
// renames it into place once fn succeeds.
func writeFile(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp output file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)
	defer f.Close()
	if err := f.Chmod(0644); err != nil {
		return fmt.Errorf("setting output file mode: %w", err)
	}

	if err := fn(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming output file: %w", err)
	}
	return nil
}
