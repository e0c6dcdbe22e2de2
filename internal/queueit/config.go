package queueit

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultCookieExpiration is the lifetime of an issued session cookie.
	DefaultCookieExpiration = 1200000 * time.Millisecond
	DefaultQueueDomain      = "queue-it.net"
)

// Request is the part of an inbound request the validator looks at.
// URI is the path plus raw query exactly as the browser sent it.
type Request struct {
	Scheme string
	Host   string
	URI    string
	Header http.Header
}

// URL returns the full observed URL the visitor was redirected to.
func (r *Request) URL() string {
	return r.Scheme + "://" + r.Host + r.URI
}

// Query parses the query part of URI. Malformed pairs are skipped.
func (r *Request) Query() url.Values {
	_, rawQuery, _ := strings.Cut(r.URI, "?")
	values, _ := url.ParseQuery(rawQuery)
	return values
}

// RequestFromHTTP builds a Request from a request served directly by net/http.
func RequestFromHTTP(r *http.Request) *Request {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	// RequestURI keeps the query exactly as sent, unless the client used absolute form.
	uri := r.RequestURI
	if !strings.HasPrefix(uri, "/") {
		uri = r.URL.RequestURI()
	}
	return &Request{
		Scheme: scheme,
		Host:   r.Host,
		URI:    uri,
		Header: r.Header,
	}
}

// CookieReader looks up a named cookie on a request.
type CookieReader func(req *Request, name string) (string, bool)

// ReadHeaderCookie is the default CookieReader; it parses the Cookie headers.
func ReadHeaderCookie(req *Request, name string) (string, bool) {
	if req == nil || req.Header == nil {
		return "", false
	}
	r := http.Request{Header: req.Header}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Config is copied into the Validator at construction and never mutated afterwards.
// Use NewConfig to get the documented defaults; a zero ExtendValidity disables
// cookie extension.
type Config struct {
	CustomerID       string `validate:"required"`
	EventID          string `validate:"required"`
	SecretKey        string `validate:"required"`
	CookieDomain     string
	QueryPrefix      string        `validate:"excludesall=&=?#"`
	CookieExpiration time.Duration `validate:"gt=0"`
	ExtendValidity   bool
	QueueDomain      string `validate:"required,hostname"`

	ReadCookie CookieReader     `validate:"-"`
	Logger     *zap.Logger      `validate:"-"`
	Now        func() time.Time `validate:"-"`
}

// NewConfig returns a Config with the defaults filled in.
func NewConfig(customerID, eventID, secretKey string) Config {
	return Config{
		CustomerID:       customerID,
		EventID:          eventID,
		SecretKey:        secretKey,
		CookieExpiration: DefaultCookieExpiration,
		ExtendValidity:   true,
		QueueDomain:      DefaultQueueDomain,
		ReadCookie:       ReadHeaderCookie,
		Now:              time.Now,
	}
}

func (c *Config) applyDefaults() {
	if c.CookieExpiration == 0 {
		c.CookieExpiration = DefaultCookieExpiration
	}
	if c.QueueDomain == "" {
		c.QueueDomain = DefaultQueueDomain
	}
	if c.ReadCookie == nil {
		c.ReadCookie = ReadHeaderCookie
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
