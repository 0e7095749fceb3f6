// Package chunker splits document text into bounded-size, word-aligned chunks.
package chunker

import "strings"

// DefaultTargetSize is the chunk size used when none is configured.
const DefaultTargetSize = 1000

// Chunk splits text into chunks of whitespace-delimited words joined by
// single spaces. A chunk is closed as soon as adding the next word would push
// its character count past targetSize; the overflowing word starts the next
// chunk. The final partial chunk is always emitted. A single word longer than
// targetSize becomes a chunk of its own, never split mid-word. Empty or
// whitespace-only input yields nil.
func Chunk(text string, targetSize int) []string {
	if targetSize < 1 {
		targetSize = DefaultTargetSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	size := 0

	for _, word := range words {
		added := len(word)
		if len(current) > 0 {
			added++ // joining space
		}
		if len(current) > 0 && size+added > targetSize {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			size = 0
			added = len(word)
		}
		current = append(current, word)
		size += added
	}

	return append(chunks, strings.Join(current, " "))
}
