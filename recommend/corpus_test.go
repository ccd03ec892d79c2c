package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCorpus(t *testing.T) {
	corpus := BuildCorpus(
		"Cafe Onion", "서울 성동구 성수동 123",
		[]string{"cozy", "quiet"},
		"A calm cafe with good coffee.",
		[]string{"great", "nice"},
	)

	assert.Contains(t, corpus, "name: Cafe Onion")
	assert.Contains(t, corpus, "address: 서울 성동구 성수동 123")
	assert.Contains(t, corpus, "emotions: cozy, quiet")
	assert.Contains(t, corpus, "summary: A calm cafe with good coffee.")
	assert.Contains(t, corpus, "reviews: great")
}

func TestBuildCorpusOmitsEmptySections(t *testing.T) {
	corpus := BuildCorpus("Place", "Addr", nil, "", nil)
	assert.NotContains(t, corpus, "emotions:")
	assert.NotContains(t, corpus, "summary:")
	assert.NotContains(t, corpus, "reviews:")
}

func TestBuildCorpusCapsReviews(t *testing.T) {
	reviews := []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7"}
	corpus := BuildCorpus("Place", "Addr", nil, "", reviews)
	assert.Contains(t, corpus, "r5")
	assert.NotContains(t, corpus, "r6")
}

func TestExtractNeighborhood(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{
			name:    "dong suffix",
			address: "서울 마포구 연남동 123-4",
			want:    "연남동",
		},
		{
			name:    "comma separated",
			address: "서울특별시, 성동구, 성수동",
			want:    "성수동",
		},
		{
			name:    "no known suffix falls back to first field",
			address: "123 Example Street",
			want:    "123",
		},
		{
			name:    "empty address",
			address: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractNeighborhood(tt.address))
		})
	}
}

func TestFallbackSummary(t *testing.T) {
	assert.Equal(t, "국수집 is located in 연남동", FallbackSummary("국수집", "서울 마포구 연남동 12"))

	// A blank address degrades to using the raw address.
	assert.Equal(t, "Place is located in ", FallbackSummary("Place", ""))
}

func TestCategoryDefaults(t *testing.T) {
	assert.Equal(t, []string{"cozy", "quiet"}, defaultEmotionsForCategory("cafe"))
	assert.Equal(t, []string{"cozy", "quiet"}, defaultEmotionsForCategory("Dessert Cafe"))
	assert.Equal(t, []string{"tasty", "friendly"}, defaultEmotionsForCategory("restaurant"))
	assert.Equal(t, []string{"tasty", "friendly"}, defaultEmotionsForCategory(""))

	assert.Equal(t, []string{"cafe"}, allowedTypesForCategory("cafe"))
	assert.Equal(t, []string{"restaurant", "food"}, allowedTypesForCategory("korean bbq"))
}
