package sarcasm

import "math/rand/v2"

// Source picks an index in [0, n). Implementations must be safe for
// concurrent use.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource returns the process-wide random source. It is not seedable.
func DefaultSource() Source { return globalSource{} }

// Fixed returns a Source that always picks index i, wrapped into range.
func Fixed(i int) Source { return fixedSource(i) }

type fixedSource int

func (f fixedSource) IntN(n int) int {
	i := int(f) % n
	if i < 0 {
		i += n
	}
	return i
}

func pick(src Source, lines []string) string {
	return lines[src.IntN(len(lines))]
}
