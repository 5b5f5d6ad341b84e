package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		count    int64
		want     int
		numPages int
	}{
		{"absent", "", 25, 1, 3},
		{"non integer", "abc", 25, 1, 3},
		{"first", "1", 25, 1, 3},
		{"middle", "2", 25, 2, 3},
		{"last", "3", 25, 3, 3},
		{"past the end", "99", 25, 3, 3},
		{"zero", "0", 25, 3, 3},
		{"negative", "-4", 25, 3, 3},
		{"empty result set", "", 0, 1, 1},
		{"empty result set past the end", "5", 0, 1, 1},
		{"exact multiple", "2", 20, 2, 2},
		{"padded", " 2 ", 25, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Resolve(tt.raw, tt.count, DefaultPageSize)
			assert.Equal(t, tt.want, p.Number)
			assert.Equal(t, tt.numPages, p.NumPages)
		})
	}
}

func TestPage_OffsetAndNeighbours(t *testing.T) {
	p := Resolve("2", 25, 10)
	assert.Equal(t, 10, p.Offset())
	assert.Equal(t, 10, p.Limit())
	assert.True(t, p.HasNext())
	assert.True(t, p.HasPrevious())

	last := Resolve("3", 25, 10)
	assert.Equal(t, 20, last.Offset())
	assert.False(t, last.HasNext())

	first := Resolve("", 25, 10)
	assert.False(t, first.HasPrevious())
}

func TestResolve_NonPositiveSizeFallsBackToDefault(t *testing.T) {
	p := Resolve("1", 15, 0)
	assert.Equal(t, DefaultPageSize, p.Size)
	assert.Equal(t, 2, p.NumPages)
}

func TestParseNumber(t *testing.T) {
	n, ok := ParseNumber(" 2")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = ParseNumber("-3")
	assert.True(t, ok)
	assert.Equal(t, -3, n)

	_, ok = ParseNumber("")
	assert.False(t, ok)
	_, ok = ParseNumber("2a")
	assert.False(t, ok)
}
