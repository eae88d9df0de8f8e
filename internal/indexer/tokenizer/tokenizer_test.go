package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"drops digits and punctuation", "abc123def, ghi!", "abcdef ghi"},
		{"strips diacritics", "Café Résumé", "cafe resume"},
		{"tabs become spaces", "a\tb", "a b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"the", "quick", "fox"}, Split("  The quick\n\tfox  "))
	assert.Empty(t, Split("123 !!! 456"))
}

func TestNormalizeKeepsOrderAndDuplicates(t *testing.T) {
	assert.Equal(t,
		[]string{"fox", "run", "fox", "jump"},
		Normalize("Foxes running, fox jumps"),
	)
}

func TestStemFamilies(t *testing.T) {
	assert.Equal(t, "comput", Stem("computer"))
	assert.Equal(t, "comput", Stem("computing"))
	assert.Equal(t, "run", Stem("running"))
}

func TestUniqueStems(t *testing.T) {
	assert.Equal(t, []string{"fox", "jump", "run"}, UniqueStems("running foxes jump; fox runs"))
	assert.Empty(t, UniqueStems("42 ---"))
}
