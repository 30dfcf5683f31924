package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFTSPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    string
		wantOK  bool
	}{
		{"plain", "daft punk", `"daft punk"* `, true},
		{"doubles double quotes", `say "hi"`, `"say ""hi"""* `, true},
		{"doubles single quotes", "it's", `"it''s"* `, true},
		{"trims before length check", "  ab  ", "", false},
		{"too short", "ab", "", false},
		{"empty", "", "", false},
		{"exactly three", "abc", `"abc"* `, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SanitizeFTSPattern(tt.pattern)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
