package queueit

import "strings"

// Query parameter names, before the configured prefix is applied.
const (
	paramQueueID      = "q"
	paramPlaceInQueue = "p"
	paramTimestamp    = "ts"
	paramHash         = "h"
	paramRedirectType = "rt"
	paramCustomerID   = "c"
	paramEventID      = "e"
	paramToken        = "queueittoken"
)

var reservedParams = []string{
	paramQueueID,
	paramPlaceInQueue,
	paramTimestamp,
	paramHash,
	paramRedirectType,
	paramCustomerID,
	paramEventID,
	paramToken,
}

// CanonicalURL strips every reserved key=value pair from the query of rawURL and
// drops trailing '?' and '&'. Key matching is case-insensitive. The order and
// content of all other segments is preserved, so CanonicalURL(CanonicalURL(u)) ==
// CanonicalURL(u).
func CanonicalURL(rawURL, prefix string) string {
	base, query, hasQuery := strings.Cut(rawURL, "?")
	if !hasQuery {
		return strings.TrimRight(rawURL, "?&")
	}

	reserved := make(map[string]struct{}, len(reservedParams))
	for _, name := range reservedParams {
		reserved[strings.ToLower(prefix+name)] = struct{}{}
	}

	segments := strings.Split(query, "&")
	kept := segments[:0]
	for _, segment := range segments {
		key, _, isPair := strings.Cut(segment, "=")
		if isPair {
			if _, ok := reserved[strings.ToLower(key)]; ok {
				continue
			}
		}
		kept = append(kept, segment)
	}

	return strings.TrimRight(base+"?"+strings.Join(kept, "&"), "?&")
}
