package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendFingerprintTagOrderInsensitive(t *testing.T) {
	a := recommendFingerprint("name", "addr", []string{"Cozy", "quiet "}, nil, "cafe", 10)
	b := recommendFingerprint("name", "addr", []string{"quiet", "cozy"}, nil, "cafe", 10)
	assert.Equal(t, a, b)
}

func TestRecommendFingerprintDropsDuplicateTags(t *testing.T) {
	a := recommendFingerprint("n", "a", []string{"cozy", "cozy", "COZY"}, nil, "", 5)
	b := recommendFingerprint("n", "a", []string{"cozy"}, nil, "", 5)
	assert.Equal(t, a, b)
}

func TestRecommendFingerprintDistinguishesInputs(t *testing.T) {
	base := recommendFingerprint("n", "a", []string{"cozy"}, nil, "cafe", 10)

	userID := int32(42)
	assert.NotEqual(t, base, recommendFingerprint("n", "a", []string{"cozy"}, &userID, "cafe", 10))
	assert.NotEqual(t, base, recommendFingerprint("n", "a", []string{"cozy"}, nil, "cafe", 5))
	assert.NotEqual(t, base, recommendFingerprint("n", "other", []string{"cozy"}, nil, "cafe", 10))
	assert.NotEqual(t, base, recommendFingerprint("n", "a", []string{"quiet"}, nil, "cafe", 10))
}

func TestFingerprintLengthPrefixing(t *testing.T) {
	// Adjacent parts must not collide by concatenation.
	assert.NotEqual(t, fingerprint("k", "ab", "c"), fingerprint("k", "a", "bc"))
	assert.NotEqual(t, fingerprint("k", "ab"), fingerprint("k", "a", "b"))
}

func TestCanonicalUser(t *testing.T) {
	assert.Equal(t, "anon", canonicalUser(nil))

	userID := int32(7)
	assert.Equal(t, "7", canonicalUser(&userID))
}

func TestEmbeddingFingerprintPerModel(t *testing.T) {
	assert.NotEqual(t,
		embeddingFingerprint("model-a", "same text"),
		embeddingFingerprint("model-b", "same text"),
	)
	assert.Equal(t,
		embeddingFingerprint("model-a", "same text"),
		embeddingFingerprint("model-a", "same text"),
	)
}
