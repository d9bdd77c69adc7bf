package general

import (
	"strings"
	"testing"
)

func TestChunk(t *testing.T) {
	blocks := []string{strings.Repeat("a", 8), strings.Repeat("b", 8), strings.Repeat("c", 3)}
	got := chunk(blocks, 17)
	if len(got) != 2 || got[0] != blocks[0]+"\n"+blocks[1] || got[1] != blocks[2] {
		t.Errorf("chunk = %q", got)
	}

	long := "line one\nline two\nline three"
	for _, part := range chunk([]string{long}, 12) {
		if len(part) > 12 {
			t.Errorf("part %q over the limit", part)
		}
	}
}
