package queueit

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// tokenLifetime is how long an inbound token is accepted after its timestamp.
const tokenLifetime int64 = 4 * 60

// The signature schemes differ per protocol generation and must stay byte-exact
// with the queue service: V2 tokens use plain MD5 with the secret substituted into
// the URL, V2 cookies use SHA-256 with the secret appended, V3 uses HMAC-SHA256.

func verifyTokenV2Hash(observedURL, hash, secret string) error {
	if hash == "" {
		return fmt.Errorf("empty v2 hash: %w", ErrMalformedToken)
	}
	preimage := strings.Replace(observedURL, hash, secret, 1)
	sum := md5.Sum([]byte(preimage))
	if !equalHash(hex.EncodeToString(sum[:]), hash) {
		return fmt.Errorf("v2 token: %w", ErrHashMismatch)
	}
	return nil
}

func cookieV2Hash(c SessionCookieV2, secret string) string {
	var b strings.Builder
	b.WriteString(c.QueueID)
	b.WriteString(c.OriginalURL)
	b.WriteString(strconv.Itoa(c.PlaceInQueue))
	b.WriteString(c.RedirectType)
	b.WriteString(c.Timestamp)
	b.WriteString(c.Expires)
	b.WriteString(secret)
	sum := sha256.Sum256([]byte(b.String()))
	return insertDashes(strings.ToUpper(hex.EncodeToString(sum[:])))
}

// insertDashes groups s in pairs separated by '-'. An odd trailing character
// forms the last group.
func insertDashes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + 2
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}

func verifyTokenV3Hash(t TokenV3, secret string) error {
	if t.Hash == "" {
		return fmt.Errorf("empty v3 hash: %w", ErrMalformedToken)
	}
	if !equalHash(hmacHex(secret, t.Raw), t.Hash) {
		return fmt.Errorf("v3 token: %w", ErrHashMismatch)
	}
	return nil
}

func cookieV3Hash(c SessionCookieV3, secret string) string {
	return hmacHex(secret, c.QueueID+strconv.FormatBool(c.IsCookieExtendable)+c.Expires+secret)
}

func hmacHex(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func equalHash(computed, supplied string) bool {
	return hmac.Equal([]byte(computed), []byte(supplied))
}

// checkFreshness accepts a token while timestamp + 240s is still in the future.
func checkFreshness(timestamp int64, now time.Time) error {
	if timestamp+tokenLifetime > now.Unix() {
		return nil
	}
	return fmt.Errorf("token issued at %d: %w", timestamp, ErrExpired)
}
