package queueit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Token is an admission token presented on the query string: either TokenV2 or
// TokenV3. A nil Token means no token was presented.
type Token interface {
	version() int
}

// TokenV2 is the discrete-parameter token (q, p, ts, h, rt).
type TokenV2 struct {
	QueueID      string
	PlaceInQueue string // obfuscated
	Timestamp    int64
	Hash         string
	RedirectType string
}

// TokenV3 is the composite queueittoken, e.g. e_event~q_id~ts_1700000000~ce_true~cv_20~h_abc.
type TokenV3 struct {
	QueueID               string
	EventID               string
	Timestamp             int64
	CookieValidityMinutes int // zero when absent
	Extendable            bool
	Hash                  string
	// Raw is the token as received with its h_ segment removed; it is the HMAC message.
	Raw string
}

func (TokenV2) version() int { return 2 }
func (TokenV3) version() int { return 3 }

// DecodeToken finds and parses the admission token on a query string. A composite
// queueittoken takes precedence over discrete V2 parameters. It returns (nil, nil)
// when neither form is present.
func DecodeToken(query url.Values, prefix string) (Token, error) {
	if _, ok := query[prefix+paramToken]; ok {
		return decodeTokenV3(query.Get(prefix + paramToken))
	}

	t := TokenV2{
		QueueID:      query.Get(prefix + paramQueueID),
		PlaceInQueue: query.Get(prefix + paramPlaceInQueue),
		Hash:         query.Get(prefix + paramHash),
		RedirectType: query.Get(prefix + paramRedirectType),
	}
	ts := query.Get(prefix + paramTimestamp)
	if t.QueueID == "" && t.PlaceInQueue == "" && t.Hash == "" && ts == "" {
		return nil, nil
	}
	if t.QueueID == "" || t.PlaceInQueue == "" || t.Hash == "" || ts == "" {
		return nil, fmt.Errorf("v2 token missing a required parameter: %w", ErrMalformedToken)
	}
	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("v2 timestamp %q: %w", ts, ErrMalformedToken)
	}
	t.Timestamp = timestamp
	return t, nil
}

// HasToken reports whether a token of either generation is present, well-formed or not.
func HasToken(query url.Values, prefix string) bool {
	t, err := DecodeToken(query, prefix)
	return t != nil || err != nil
}

func decodeTokenV3(raw string) (TokenV3, error) {
	var t TokenV3
	var hasTimestamp bool

	segments := strings.Split(raw, "~")
	kept := make([]string, 0, len(segments))
	for _, segment := range segments {
		key, value, _ := strings.Cut(segment, "_")
		switch key {
		case "h":
			t.Hash = value
			continue
		case "q":
			t.QueueID = value
		case "e":
			t.EventID = value
		case "ts":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return TokenV3{}, fmt.Errorf("v3 timestamp %q: %w", value, ErrMalformedToken)
			}
			t.Timestamp = ts
			hasTimestamp = true
		case "cv":
			minutes, err := strconv.Atoi(value)
			if err != nil || minutes < 0 {
				return TokenV3{}, fmt.Errorf("v3 cookie validity %q: %w", value, ErrMalformedToken)
			}
			t.CookieValidityMinutes = minutes
		case "ce":
			t.Extendable = strings.EqualFold(value, "true")
		}
		kept = append(kept, segment)
	}
	t.Raw = strings.Join(kept, "~")

	if t.QueueID == "" || t.EventID == "" || t.Hash == "" || !hasTimestamp {
		return TokenV3{}, fmt.Errorf("v3 token missing a required segment: %w", ErrMalformedToken)
	}
	return t, nil
}
