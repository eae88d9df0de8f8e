package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	args := Parse([]string{"stray", "-text", "input", "-index", "-threads", "3", "-counts", "out.json", "-text", "other"})

	assert.Equal(t, 4, args.Len())
	assert.True(t, args.HasFlag("-index"))
	assert.False(t, args.HasValue("-index"))
	assert.Equal(t, "index.json", args.GetPath("-index", "index.json"))
	assert.Equal(t, "other", args.GetPath("-text", ""), "last value wins")
	assert.Equal(t, 3, args.GetInt("-threads", 5))
	assert.Equal(t, "out.json", args.GetString("-counts", ""))
	assert.False(t, args.HasFlag("stray"))
	assert.False(t, args.HasFlag("-query"))
}

func TestRepeatedFlagWithoutValueClearsValue(t *testing.T) {
	args := Parse([]string{"-results", "a.json", "-results"})
	assert.True(t, args.HasFlag("-results"))
	assert.False(t, args.HasValue("-results"))
	assert.Equal(t, "results.json", args.GetPath("-results", "results.json"))
}

func TestNegativeNumbersAreValues(t *testing.T) {
	args := Parse([]string{"-threads", "-5", "-limit", "abc"})
	assert.Equal(t, -5, args.GetInt("-threads", 1))
	assert.Equal(t, 7, args.GetInt("-limit", 7))
	assert.Equal(t, 9, args.GetInt("-missing", 9))
}

func TestIsFlag(t *testing.T) {
	for arg, want := range map[string]bool{
		"-text": true,
		"-é":    true,
		"-":     false,
		"- x":   false,
		"-1":    false,
		"text":  false,
		"":      false,
	} {
		assert.Equal(t, want, IsFlag(arg), arg)
	}
}

func TestIsValue(t *testing.T) {
	assert.True(t, IsValue("input/"))
	assert.True(t, IsValue("-3"))
	assert.False(t, IsValue("   "))
	assert.False(t, IsValue("-exact"))
}
