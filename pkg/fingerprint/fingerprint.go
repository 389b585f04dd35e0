// Package fingerprint derives stable identifiers for articles and alerts.
package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"cybernews/pkg/utils"
)

// idLength is the number of hex characters kept from the digest.
const idLength = 32

// ArticleID returns the identifier of an article. It depends only on the
// source id, the URL and the search form of the title, so re-ingesting the
// same article always yields the same id regardless of casing or punctuation.
func ArticleID(sourceID, url, title string) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(sourceID)),
		strings.TrimSpace(url),
		utils.SearchForm(title),
	}

	return Hash(strings.Join(parts, "\x00"))[:idLength]
}

// DedupKey returns the alert history key for an article at a severity tier.
func DedupKey(articleID, severity string) string {
	return articleID + ":" + strings.ToLower(severity)
}

// Hash computes the hex SHA-256 of content.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))

	return hex.EncodeToString(sum[:])
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}
