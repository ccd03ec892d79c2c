package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "comma separated",
			in:   "cozy, quiet, romantic",
			want: []string{"cozy", "quiet", "romantic"},
		},
		{
			name: "normalizes case and spacing",
			in:   " Cozy ,QUIET ",
			want: []string{"cozy", "quiet"},
		},
		{
			name: "drops empty segments",
			in:   "cozy,,quiet,",
			want: []string{"cozy", "quiet"},
		},
		{
			name: "empty input",
			in:   "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitTags(tt.in))
		})
	}
}

func TestSampleReviews(t *testing.T) {
	reviews := []string{"a", "b", "c", "d", "e", "f"}
	assert.Len(t, sampleReviews(reviews, 5), 5)
	assert.Equal(t, reviews[:2], sampleReviews(reviews[:2], 5))
	assert.Nil(t, sampleReviews(nil, 5))
}
