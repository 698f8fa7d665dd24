package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPromptText_DropsEmptySections(t *testing.T) {
	text := "### FIRST ###\nrules here\n\n\n\n  \n\nsecond block"
	segments := SplitPromptText(text)

	assert.Len(t, segments, 2)
	assert.Equal(t, "### FIRST ###\nrules here", segments[0].Text)
	assert.Equal(t, "second block", segments[1].Text)
	for _, s := range segments {
		assert.False(t, s.IsImage())
	}
}

func TestJoinText_SkipsImageSegments(t *testing.T) {
	segments := []Segment{
		TextSegment("a"),
		ImageSegment([]byte{0x89}, "image/png"),
		TextSegment("b"),
	}
	assert.Equal(t, "a\nb", JoinText(segments))
}

func TestJoinText_EmptyInput(t *testing.T) {
	assert.Empty(t, JoinText(nil))
	assert.Empty(t, JoinText([]Segment{ImageSegment([]byte{1}, "image/png")}))
}
