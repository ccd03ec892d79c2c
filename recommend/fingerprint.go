package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Cache keys are deterministic fingerprints of normalized request inputs.
// Tag sets are canonicalized (lowercased, trimmed, sorted, deduplicated)
// before hashing so that input order can never fragment the cache.

func canonicalTags(tags []string) string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}

func canonicalUser(userID *int32) string {
	if userID == nil {
		return "anon"
	}
	return strconv.FormatInt(int64(*userID), 10)
}

// fingerprint combines an operation kind with its normalized inputs into a
// stable hex key. Parts are length-prefixed so adjacent fields can never
// collide by concatenation.
func fingerprint(kind string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, part := range parts {
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{':'})
		h.Write([]byte(part))
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}

func recommendFingerprint(name, address string, emotionTags []string, userID *int32, category string, topK int) string {
	return fingerprint("rec",
		strings.ToLower(strings.TrimSpace(name)),
		strings.ToLower(strings.TrimSpace(address)),
		canonicalTags(emotionTags),
		canonicalUser(userID),
		strings.ToLower(strings.TrimSpace(category)),
		strconv.Itoa(topK),
	)
}

func embeddingFingerprint(model, text string) string {
	return fingerprint("emb", model, text)
}

func emotionFingerprint(tags []string) string {
	return fingerprint("emo", canonicalTags(tags))
}

func userContextFingerprint(userID int32) string {
	return fingerprint("uctx", strconv.FormatInt(int64(userID), 10))
}
