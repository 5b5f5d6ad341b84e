// Package pagination resolves page parameters against a fixed page size.
package pagination

import (
	"strconv"
	"strings"
)

// DefaultPageSize is the number of posts shown on every feed page.
const DefaultPageSize = 10

// Page describes the slice of a result set a request resolves to.
type Page struct {
	Number   int
	NumPages int
	Size     int
	Count    int64
}

// Resolve maps a raw page parameter onto a page of a result set of count items.
//
// An absent or non-integer parameter resolves to page 1. Integers below 1 or
// past the end resolve to the last page. An empty result set has exactly one
// page.
func Resolve(raw string, count int64, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	numPages := NumPages(count, size)

	number, ok := ParseNumber(raw)
	switch {
	case !ok:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}

	return Page{Number: number, NumPages: numPages, Size: size, Count: count}
}

// ParseNumber reads a page parameter the way Resolve does: surrounding
// whitespace is ignored and ok is false when the rest is not an integer.
func ParseNumber(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// NumPages returns how many pages count items occupy, never fewer than one.
func NumPages(count int64, size int) int {
	if count <= 0 || size <= 0 {
		return 1
	}
	return int((count + int64(size) - 1) / int64(size))
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Limit is the page size.
func (p Page) Limit() int {
	return p.Size
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}
