package dataType

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// URLRule matches a request path, either literally, as a prefix (pattern ending
// in '*'), or as a regular expression.
type URLRule struct {
	Pattern  string
	IsRegex  bool
	IsPrefix bool
	Regex    *regexp.Regexp
}

// URLRuleList is an ordered set of URL rules
type URLRuleList struct {
	rules []*URLRule
}

// Append add a rule to the end of the list
func (l *URLRuleList) Append(rule *URLRule) {
	l.rules = append(l.rules, rule)
}

func (l *URLRuleList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.rules)
}

// CleanURIPath reduces a request URI to the path a server would resolve: the query
// and fragment are cut, percent-escapes decoded once, and dot segments and repeated
// slashes removed. ok is false when the path has an invalid escape.
func CleanURIPath(uri string) (string, bool) {
	if idx := strings.IndexAny(uri, "?#"); idx != -1 {
		uri = uri[:idx]
	}
	decoded, err := url.PathUnescape(uri)
	if err != nil {
		return "", false
	}
	return path.Clean("/" + decoded), true
}

// Match check if the cleaned path of uri matches any rule in the list. The query
// string is ignored so token parameters cannot change the outcome.
func (l *URLRuleList) Match(uri string) bool {
	if l == nil {
		return false
	}
	cleaned, ok := CleanURIPath(uri)
	if !ok {
		return false
	}
	for _, rule := range l.rules {
		switch {
		case rule.IsRegex:
			if rule.Regex.MatchString(cleaned) {
				return true
			}
		case rule.IsPrefix:
			if strings.HasPrefix(cleaned, strings.TrimSuffix(rule.Pattern, "*")) {
				return true
			}
		default:
			if rule.Pattern == cleaned {
				return true
			}
		}
	}
	return false
}
