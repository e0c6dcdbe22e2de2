package queueit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const cookieNamePrefix = "QueueITAccepted-SDFrts345E-"

// Cookie field keys as they appear on the wire.
const (
	fieldQueueID            = "QueueId"
	fieldOriginalURL        = "OriginalUrl"
	fieldPlaceInQueue       = "PlaceInQueue"
	fieldRedirectType       = "RedirectType"
	fieldTimestamp          = "TimeStamp"
	fieldHash               = "Hash"
	fieldExpires            = "Expires"
	fieldIsCookieExtendable = "IsCookieExtendable"
)

// redirectTypeIdle marks a V2 session that must not be extended.
const redirectTypeIdle = "Idle"

// SessionCookieV2 is the cookie issued after a V2 token or V2 cookie validation.
type SessionCookieV2 struct {
	QueueID      string
	OriginalURL  string
	PlaceInQueue int
	RedirectType string
	Timestamp    string
	Hash         string
	Expires      string
}

// SessionCookieV3 is the cookie issued after a V3 token or V3 cookie validation.
type SessionCookieV3 struct {
	QueueID            string
	IsCookieExtendable bool
	Hash               string
	Expires            string
}

// Encode serializes the cookie in canonical field order.
func (c SessionCookieV2) Encode() string {
	return joinPairs(
		fieldQueueID, c.QueueID,
		fieldOriginalURL, encodeURIComponent(c.OriginalURL),
		fieldPlaceInQueue, strconv.Itoa(c.PlaceInQueue),
		fieldRedirectType, c.RedirectType,
		fieldTimestamp, c.Timestamp,
		fieldHash, c.Hash,
		fieldExpires, c.Expires,
	)
}

// Expiration parses Expires.
func (c SessionCookieV2) Expiration() (time.Time, error) {
	return ParseExpiration(c.Expires)
}

// ParseCookieV2 accepts the fields in any order.
func ParseCookieV2(value string) (SessionCookieV2, error) {
	fields := splitPairs(value)
	c := SessionCookieV2{
		QueueID:      fields[fieldQueueID],
		RedirectType: fields[fieldRedirectType],
		Timestamp:    fields[fieldTimestamp],
		Hash:         fields[fieldHash],
		Expires:      fields[fieldExpires],
	}
	if c.QueueID == "" || c.Hash == "" || c.Expires == "" {
		return SessionCookieV2{}, fmt.Errorf("v2 cookie missing a required field: %w", ErrMalformedToken)
	}

	originalURL, err := url.PathUnescape(fields[fieldOriginalURL])
	if err != nil {
		return SessionCookieV2{}, fmt.Errorf("v2 cookie original url: %v: %w", err, ErrMalformedToken)
	}
	c.OriginalURL = originalURL

	place, err := strconv.Atoi(fields[fieldPlaceInQueue])
	if err != nil {
		return SessionCookieV2{}, fmt.Errorf("v2 cookie place in queue %q: %w", fields[fieldPlaceInQueue], ErrMalformedToken)
	}
	c.PlaceInQueue = place

	if _, err := c.Expiration(); err != nil {
		return SessionCookieV2{}, err
	}
	return c, nil
}

// Encode serializes the cookie in canonical field order.
func (c SessionCookieV3) Encode() string {
	return joinPairs(
		fieldIsCookieExtendable, strconv.FormatBool(c.IsCookieExtendable),
		fieldHash, c.Hash,
		fieldExpires, c.Expires,
		fieldQueueID, c.QueueID,
	)
}

// Expiration parses Expires.
func (c SessionCookieV3) Expiration() (time.Time, error) {
	return ParseExpiration(c.Expires)
}

// ParseCookieV3 accepts the fields in any order.
func ParseCookieV3(value string) (SessionCookieV3, error) {
	fields := splitPairs(value)
	c := SessionCookieV3{
		QueueID: fields[fieldQueueID],
		Hash:    fields[fieldHash],
		Expires: fields[fieldExpires],
	}
	if c.QueueID == "" || c.Hash == "" || c.Expires == "" {
		return SessionCookieV3{}, fmt.Errorf("v3 cookie missing a required field: %w", ErrMalformedToken)
	}

	switch fields[fieldIsCookieExtendable] {
	case "true":
		c.IsCookieExtendable = true
	case "false":
	default:
		return SessionCookieV3{}, fmt.Errorf("v3 cookie extendable flag %q: %w", fields[fieldIsCookieExtendable], ErrMalformedToken)
	}

	if _, err := c.Expiration(); err != nil {
		return SessionCookieV3{}, err
	}
	return c, nil
}

// FormatExpiration renders t as a UTC millisecond ISO-8601 instant with four extra
// zero digits before the zone marker, e.g. 2024-05-01T10:20:30.1230000Z.
func FormatExpiration(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "0000Z"
}

// ParseExpiration accepts both the extended and the plain millisecond form.
func ParseExpiration(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expiration %q: %w", s, ErrMalformedToken)
	}
	return t, nil
}

func joinPairs(kv ...string) string {
	pairs := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, kv[i]+"="+kv[i+1])
	}
	return strings.Join(pairs, "&")
}

func splitPairs(value string) map[string]string {
	fields := make(map[string]string)
	for _, pair := range strings.Split(value, "&") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		fields[key] = val
	}
	return fields
}

// encodeURIComponent percent-encodes s as a query value with spaces as %20.
// It also escapes !'()* which the browser function leaves alone; the cookie
// hash is computed over the decoded URL, so only the stored text differs.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
