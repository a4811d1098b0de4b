// Package caption holds the user-editable pool of candidate captions.
package caption

import (
	_ "embed"
	"math/rand/v2"
	"strings"
)

// Pool is a newline-delimited list of captions. Blank lines never get picked.
type Pool struct {
	lines []string
	intN  func(n int) int
}

// NewPool parses text into a pool. intN picks an index in [0, n);
// nil means math/rand/v2.
func NewPool(text string, intN func(n int) int) *Pool {
	if intN == nil {
		intN = rand.IntN
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return &Pool{lines: lines, intN: intN}
}

// Lines returns the non-blank captions in their original order.
func (p *Pool) Lines() []string {
	return append([]string(nil), p.lines...)
}

// Len returns the number of selectable captions.
func (p *Pool) Len() int {
	return len(p.lines)
}

// PickRandom returns a uniformly chosen caption, or "" when the pool is empty.
func (p *Pool) PickRandom() string {
	if len(p.lines) == 0 {
		return ""
	}
	return p.lines[p.intN(len(p.lines))]
}

// DefaultText is the caption pool a fresh booth starts with.
//
//go:embed default_captions.txt
var DefaultText string
