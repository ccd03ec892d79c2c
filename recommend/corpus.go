package recommend

import "strings"

// reviewSampleSize caps how many reviews feed the embedding corpus.
const reviewSampleSize = 5

// BuildCorpus concatenates the embedding input text for a place: name,
// address, emotion tags, latest summary and a capped review sample. The
// embedding must be recomputed whenever any of these change.
func BuildCorpus(name, address string, emotions []string, summary string, reviews []string) string {
	parts := []string{
		"name: " + name,
		"address: " + address,
	}
	if len(emotions) > 0 {
		parts = append(parts, "emotions: "+strings.Join(emotions, ", "))
	}
	if summary != "" {
		parts = append(parts, "summary: "+summary)
	}
	if len(reviews) > 0 {
		sample := reviews
		if len(sample) > reviewSampleSize {
			sample = sample[:reviewSampleSize]
		}
		parts = append(parts, "reviews: "+strings.Join(sample, " \n"))
	}
	return strings.Join(parts, "\n")
}

// neighborhoodSuffixes mark the administrative unit an address component
// must end with to count as a neighborhood.
var neighborhoodSuffixes = []string{"동", "읍", "면", "가", "리"}

// ExtractNeighborhood pulls the neighborhood component out of an address for
// location grouping and templated summaries. When no component carries a
// known suffix the first component is used, and a blank address maps to an
// empty neighborhood.
func ExtractNeighborhood(address string) string {
	fields := strings.Fields(strings.ReplaceAll(address, ",", " "))
	for _, field := range fields {
		for _, suffix := range neighborhoodSuffixes {
			if strings.HasSuffix(field, suffix) && len(field) > len(suffix) {
				return field
			}
		}
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// FallbackSummary is the templated summary used when no generated summary
// exists or the summarizer returned empty.
func FallbackSummary(name, address string) string {
	neighborhood := ExtractNeighborhood(address)
	if neighborhood == "" {
		neighborhood = address
	}
	return name + " is located in " + neighborhood
}

// defaultEmotionsForCategory returns the category-default emotion tags given
// to external candidates that fall outside the enrichment budget.
func defaultEmotionsForCategory(category string) []string {
	if strings.Contains(strings.ToLower(category), "cafe") {
		return []string{"cozy", "quiet"}
	}
	return []string{"tasty", "friendly"}
}

// allowedTypesForCategory maps the request category onto the provider's
// place type filter.
func allowedTypesForCategory(category string) []string {
	if strings.Contains(strings.ToLower(category), "cafe") {
		return []string{"cafe"}
	}
	return []string{"restaurant", "food"}
}
