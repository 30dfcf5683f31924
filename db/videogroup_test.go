package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoGroupAggregateCommonPrefix(t *testing.T) {
	agg := newVideoGroupAggregate()
	agg.Step("Batman Begins")
	agg.Step("Batman Returns")
	assert.Equal(t, "Batman ", agg.Done())
}

func TestVideoGroupAggregateCaseInsensitive(t *testing.T) {
	agg := newVideoGroupAggregate()
	agg.Step("BATMAN begins")
	agg.Step("batman RETURNS")
	// Case folding only affects comparison; the kept text comes from
	// the first operand.
	assert.Equal(t, "BATMAN ", agg.Done())
}

func TestVideoGroupAggregateSkipsLeadingArticle(t *testing.T) {
	agg := newVideoGroupAggregate()
	agg.Step("The Matrix")
	agg.Step("Matrix Reloaded")
	assert.Equal(t, "(The) Matrix", agg.Done())
}

func TestVideoGroupAggregateBothArticles(t *testing.T) {
	agg := newVideoGroupAggregate()
	agg.Step("The Office US")
	agg.Step("The Office UK")
	// Both operands carried the article: no asymmetry flag.
	assert.Equal(t, "Office U", agg.Done())
}

func TestVideoGroupAggregateSingleValue(t *testing.T) {
	agg := newVideoGroupAggregate()
	agg.Step("Solaris")
	assert.Equal(t, "Solaris", agg.Done())
}

func TestVideoGroupAggregateNoCommonPrefix(t *testing.T) {
	agg := newVideoGroupAggregate()
	agg.Step("Alpha")
	agg.Step("Zulu")
	assert.Equal(t, "", agg.Done())
}
