package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupingPrefix(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Batman Begins", "batman"},
		{"The Batman", "batman"},
		{"the batman", "batman"},
		{"Up", "up"},
		{"THEODORE", "theodo"}, // no space after "the": not an article
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, groupingPrefix(tt.title), tt.title)
	}
}

func TestStripLeadingArticle(t *testing.T) {
	s, had := stripLeadingArticle("The Matrix")
	assert.Equal(t, "Matrix", s)
	assert.True(t, had)

	s, had = stripLeadingArticle("Matrix")
	assert.Equal(t, "Matrix", s)
	assert.False(t, had)

	// Case-insensitive article detection.
	s, had = stripLeadingArticle("THE end")
	assert.Equal(t, "end", s)
	assert.True(t, had)
}

func TestCommonPatternLength(t *testing.T) {
	assert.Equal(t, 7, commonPatternLength("Batman Begins", "Batman Returns"))
	assert.Equal(t, 7, commonPatternLength("batman begins", "BATMAN RETURNS"))
	assert.Equal(t, 0, commonPatternLength("Alpha", "Zulu"))
	assert.Equal(t, 5, commonPatternLength("Alpha", "alphabet"))
}
