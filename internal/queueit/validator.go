package queueit

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Strategy names reported in Result.Strategy.
const (
	StrategyCookieV2 = "cookie_v2"
	StrategyCookieV3 = "cookie_v3"
	StrategyTokenV2  = "token_v2"
	StrategyTokenV3  = "token_v3"
)

// Result is the outcome of one validation. Cookie is the single cookie to set on
// the response, or nil when nothing needs to be written.
type Result struct {
	Accepted bool
	Strategy string
	Cookie   *http.Cookie
}

// attempt carries the per-request inputs shared by all strategies.
type attempt struct {
	req      *Request
	now      time.Time
	token    Token
	tokenErr error
}

// strategy recognizes one credential form, verifies it, and returns the cookie to
// issue. A nil cookie with a nil error accepts without writing anything.
type strategy struct {
	name string
	try  func(v *Validator, a *attempt) (*http.Cookie, error)
}

// Validator decides whether a request has passed the waiting room. It holds only
// immutable configuration and is safe for concurrent use.
type Validator struct {
	cfg        Config
	strategies []strategy
}

var validate = validator.New()

// NewValidator validates cfg and fills unset optional fields with defaults.
func NewValidator(cfg Config) (*Validator, error) {
	cfg.applyDefaults()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid queue-it config: %w", err)
	}
	return &Validator{
		cfg: cfg,
		strategies: []strategy{
			{name: StrategyCookieV2, try: (*Validator).tryCookieV2},
			{name: StrategyCookieV3, try: (*Validator).tryCookieV3},
			{name: StrategyTokenV2, try: (*Validator).tryTokenV2},
			{name: StrategyTokenV3, try: (*Validator).tryTokenV3},
		},
	}, nil
}

// Config returns a copy of the validator's configuration.
func (v *Validator) Config() Config {
	return v.cfg
}

// Validate runs the strategies in order; the first one that succeeds decides.
func (v *Validator) Validate(req *Request) Result {
	a := &attempt{req: req, now: v.cfg.Now()}
	a.token, a.tokenErr = DecodeToken(req.Query(), v.cfg.QueryPrefix)

	for _, s := range v.strategies {
		cookie, err := s.try(v, a)
		if err != nil {
			if errors.Is(err, ErrNoCredential) {
				continue
			}
			v.cfg.Logger.Debug("queue-it strategy declined",
				zap.String("strategy", s.name),
				zap.String("host", req.Host),
				zap.Error(err))
			continue
		}
		return Result{Accepted: true, Strategy: s.name, Cookie: cookie}
	}
	return Result{}
}

// QueueURL builds the waiting-room URL for target, a path on the request's own host.
func (v *Validator) QueueURL(req *Request, target string) string {
	return BuildQueueURL(v.cfg, req.Scheme+"://"+req.Host+target)
}

// CookieNameV2 is the name of the V2 session cookie for this customer and event.
func (v *Validator) CookieNameV2() string {
	return cookieNamePrefix + v.cfg.CustomerID + "-" + v.cfg.EventID
}

// CookieNameV3 is the name of the V3 session cookie for this event.
func (v *Validator) CookieNameV3() string {
	return cookieNamePrefix + "V3_" + v.cfg.EventID
}

func (v *Validator) tryCookieV2(a *attempt) (*http.Cookie, error) {
	value, ok := v.cfg.ReadCookie(a.req, v.CookieNameV2())
	if !ok || value == "" {
		return nil, ErrNoCredential
	}
	c, err := ParseCookieV2(value)
	if err != nil {
		return nil, err
	}
	expires, _ := c.Expiration()
	if !a.now.Before(expires) {
		return nil, fmt.Errorf("v2 cookie expired at %s: %w", c.Expires, ErrExpired)
	}
	if !equalHash(cookieV2Hash(c, v.cfg.SecretKey), c.Hash) {
		return nil, fmt.Errorf("v2 cookie: %w", ErrHashMismatch)
	}

	if !v.cfg.ExtendValidity || c.RedirectType == redirectTypeIdle {
		return nil, nil
	}
	return v.issueCookieV2(c, a.now), nil
}

func (v *Validator) tryCookieV3(a *attempt) (*http.Cookie, error) {
	value, ok := v.cfg.ReadCookie(a.req, v.CookieNameV3())
	if !ok || value == "" {
		return nil, ErrNoCredential
	}
	c, err := ParseCookieV3(value)
	if err != nil {
		return nil, err
	}
	expires, _ := c.Expiration()
	if !a.now.Before(expires) {
		return nil, fmt.Errorf("v3 cookie expired at %s: %w", c.Expires, ErrExpired)
	}
	if !equalHash(cookieV3Hash(c, v.cfg.SecretKey), c.Hash) {
		return nil, fmt.Errorf("v3 cookie: %w", ErrHashMismatch)
	}

	if !v.cfg.ExtendValidity || !c.IsCookieExtendable {
		return nil, nil
	}
	return v.issueCookieV3(c, a.now, v.cfg.CookieExpiration), nil
}

func (v *Validator) tryTokenV2(a *attempt) (*http.Cookie, error) {
	if a.tokenErr != nil {
		return nil, a.tokenErr
	}
	t, ok := a.token.(TokenV2)
	if !ok {
		return nil, ErrNoCredential
	}

	observed := a.req.URL()
	if err := verifyTokenV2Hash(observed, t.Hash, v.cfg.SecretKey); err != nil {
		return nil, err
	}
	if err := checkFreshness(t.Timestamp, a.now); err != nil {
		return nil, err
	}
	place, err := DecodePlaceInQueue(t.PlaceInQueue)
	if err != nil {
		return nil, err
	}

	c := SessionCookieV2{
		QueueID:      t.QueueID,
		OriginalURL:  CanonicalURL(observed, v.cfg.QueryPrefix),
		PlaceInQueue: place,
		RedirectType: t.RedirectType,
		Timestamp:    strconv.FormatInt(t.Timestamp, 10),
	}
	return v.issueCookieV2(c, a.now), nil
}

func (v *Validator) tryTokenV3(a *attempt) (*http.Cookie, error) {
	if a.tokenErr != nil {
		return nil, a.tokenErr
	}
	t, ok := a.token.(TokenV3)
	if !ok {
		return nil, ErrNoCredential
	}

	if t.EventID != v.cfg.EventID {
		return nil, fmt.Errorf("v3 token for event %q: %w", t.EventID, ErrMalformedToken)
	}
	if err := verifyTokenV3Hash(t, v.cfg.SecretKey); err != nil {
		return nil, err
	}
	if err := checkFreshness(t.Timestamp, a.now); err != nil {
		return nil, err
	}

	validity := v.cfg.CookieExpiration
	if t.CookieValidityMinutes > 0 {
		validity = time.Duration(t.CookieValidityMinutes) * time.Minute
	}
	c := SessionCookieV3{
		QueueID:            t.QueueID,
		IsCookieExtendable: t.Extendable,
	}
	return v.issueCookieV3(c, a.now, validity), nil
}

// issueCookieV2 refreshes the expiration and signature of c and wraps it for the response.
func (v *Validator) issueCookieV2(c SessionCookieV2, now time.Time) *http.Cookie {
	c.Expires = FormatExpiration(now.Add(v.cfg.CookieExpiration))
	c.Hash = cookieV2Hash(c, v.cfg.SecretKey)
	return v.httpCookie(v.CookieNameV2(), c.Encode(), v.cfg.CookieExpiration)
}

func (v *Validator) issueCookieV3(c SessionCookieV3, now time.Time, validity time.Duration) *http.Cookie {
	c.Expires = FormatExpiration(now.Add(validity))
	c.Hash = cookieV3Hash(c, v.cfg.SecretKey)
	return v.httpCookie(v.CookieNameV3(), c.Encode(), validity)
}

func (v *Validator) httpCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   v.cfg.CookieDomain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
	}
}
