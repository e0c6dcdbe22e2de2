package check

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"queue_torii/internal/action"
	"queue_torii/internal/config"
	"queue_torii/internal/dataType"
	"queue_torii/internal/queueit"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0f6b8e1c-5a0d-4c4e-9d3e-2b7f0a9c1d22"
	testCustomer = "ticketania"
	testEvent    = "summer"
)

func newRuleSet(t *testing.T) *config.RuleSet {
	t.Helper()
	rs := &config.RuleSet{
		IPAllowRule:  &dataType.IPAllowRule{Enabled: true, Trie: &dataType.TrieNode{}},
		URLAllowRule: &dataType.URLAllowRule{Enabled: true, List: &dataType.URLRuleList{}},
		QueueItRule: &dataType.QueueItRule{
			Enabled:    true,
			CustomerID: testCustomer,
			EventID:    testEvent,
			SecretKey:  testSecret,
		},
		TokenFailureRule: &dataType.TokenFailureRule{
			Enabled:       true,
			FailureLimit:  map[int64]int64{60: 2},
			BlockDuration: 300,
		},
	}
	_, ipNet, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	rs.IPAllowRule.Trie.Insert(ipNet)
	rs.URLAllowRule.List.Append(&dataType.URLRule{Pattern: "/static/*", IsPrefix: true})

	v, err := queueit.NewValidator(queueit.NewConfig(testCustomer, testEvent, testSecret))
	require.NoError(t, err)
	rs.QueueValidator = v
	return rs
}

func newSharedMem() *dataType.SharedMemory {
	return &dataType.SharedMemory{
		TokenFailureCounter: dataType.NewCounter(4, 60),
		BlockList:           dataType.NewBlockList(),
	}
}

func newUserRequest(ip, uri string) dataType.UserRequest {
	return dataType.UserRequest{
		RequestID: "test",
		RemoteIP:  ip,
		Scheme:    "https",
		Host:      "shop.example.com",
		Uri:       uri,
		Header:    http.Header{},
	}
}

func signedToken(secret string, ts int64) string {
	raw := fmt.Sprintf("e_%s~q_q-17~ts_%d~ce_true~cv_15", testEvent, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return raw + "~h_" + hex.EncodeToString(mac.Sum(nil))
}

func TestIPAllowList(t *testing.T) {
	rs := newRuleSet(t)

	decision := action.NewDecision()
	IPAllowList(newUserRequest("10.9.8.7", "/"), rs, decision, newSharedMem())
	assert.Equal(t, action.Done, decision.State)
	assert.Equal(t, "200", string(decision.HTTPCode))
	assert.Equal(t, SourceIPAllow, decision.Source)

	decision = action.NewDecision()
	IPAllowList(newUserRequest("203.0.113.5", "/"), rs, decision, newSharedMem())
	assert.Equal(t, action.Continue, decision.State)

	decision = action.NewDecision()
	IPAllowList(newUserRequest("garbage", "/"), rs, decision, newSharedMem())
	assert.Equal(t, action.Continue, decision.State)

	rs.IPAllowRule.Enabled = false
	decision = action.NewDecision()
	IPAllowList(newUserRequest("10.9.8.7", "/"), rs, decision, newSharedMem())
	assert.Equal(t, action.Continue, decision.State)
}

func TestURLAllowList(t *testing.T) {
	rs := newRuleSet(t)

	decision := action.NewDecision()
	URLAllowList(newUserRequest("203.0.113.5", "/static/app.js?v=3"), rs, decision, newSharedMem())
	assert.Equal(t, action.Done, decision.State)
	assert.Equal(t, SourceURLAllow, decision.Source)

	decision = action.NewDecision()
	URLAllowList(newUserRequest("203.0.113.5", "/checkout"), rs, decision, newSharedMem())
	assert.Equal(t, action.Continue, decision.State)
	for _, uri := range []string{"/static/../checkout?item=7", "/static/%2e%2e/checkout", "/static//../../checkout"} {
		decision = action.NewDecision()
		URLAllowList(newUserRequest("203.0.113.5", uri), rs, decision, newSharedMem())
		assert.Equal(t, action.Continue, decision.State, uri)
	}
}

func TestQueueItAcceptsToken(t *testing.T) {
	rs := newRuleSet(t)
	mem := newSharedMem()

	token := signedToken(testSecret, time.Now().Unix())
	decision := action.NewDecision()
	QueueIt(newUserRequest("203.0.113.5", "/checkout?queueittoken="+token), rs, decision, mem)

	assert.Equal(t, action.Done, decision.State)
	assert.Equal(t, "200", string(decision.HTTPCode))
	assert.Equal(t, queueit.StrategyTokenV3, decision.Source)
	require.NotNil(t, decision.Cookie)
	assert.Equal(t, "QueueITAccepted-SDFrts345E-V3_summer", decision.Cookie.Name)
	assert.Equal(t, 900, decision.Cookie.MaxAge)
	assert.Equal(t, int64(0), mem.TokenFailureCounter.Query("203.0.113.5", 60))
}

func TestQueueItAcceptsCookie(t *testing.T) {
	rs := newRuleSet(t)
	mem := newSharedMem()

	token := signedToken(testSecret, time.Now().Unix())
	first := action.NewDecision()
	QueueIt(newUserRequest("203.0.113.5", "/?queueittoken="+token), rs, first, mem)
	require.NotNil(t, first.Cookie)

	req := newUserRequest("203.0.113.5", "/basket")
	req.Header.Add("Cookie", first.Cookie.Name+"="+first.Cookie.Value)
	decision := action.NewDecision()
	QueueIt(req, rs, decision, mem)
	assert.Equal(t, "200", string(decision.HTTPCode))
	assert.Equal(t, queueit.StrategyCookieV3, decision.Source)
}

func TestQueueItRedirectsWithoutCredential(t *testing.T) {
	rs := newRuleSet(t)
	mem := newSharedMem()

	decision := action.NewDecision()
	QueueIt(newUserRequest("203.0.113.5", "/checkout?item=7&q=stale"), rs, decision, mem)

	assert.Equal(t, action.Done, decision.State)
	assert.Equal(t, "QUEUE", string(decision.HTTPCode))
	assert.Equal(t, SourceQueue, decision.Source)
	assert.Nil(t, decision.Cookie)

	queueURL, err := url.Parse(string(decision.ResponseData))
	require.NoError(t, err)
	assert.Equal(t, "ticketania.queue-it.net", queueURL.Host)
	assert.Equal(t, "https://shop.example.com/checkout?item=7", queueURL.Query().Get("t"))
	assert.Equal(t, "n"+queueit.Version, queueURL.Query().Get("ver"))
}

func TestQueueItTargetPath(t *testing.T) {
	rs := newRuleSet(t)
	rs.QueueItRule.TargetPath = "/landing"

	decision := action.NewDecision()
	QueueIt(newUserRequest("203.0.113.5", "/checkout"), rs, decision, newSharedMem())

	queueURL, err := url.Parse(string(decision.ResponseData))
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/landing", queueURL.Query().Get("t"))
}

func TestQueueItDisabled(t *testing.T) {
	rs := newRuleSet(t)
	rs.QueueItRule.Enabled = false

	decision := action.NewDecision()
	QueueIt(newUserRequest("203.0.113.5", "/"), rs, decision, newSharedMem())
	assert.Equal(t, action.Continue, decision.State)
}

func TestTokenFailureBlocksRepeatedForgeries(t *testing.T) {
	rs := newRuleSet(t)
	mem := newSharedMem()
	forged := signedToken("wrong-secret", time.Now().Unix())

	for i := 0; i < 3; i++ {
		decision := action.NewDecision()
		TokenFailure(newUserRequest("203.0.113.5", "/"), rs, decision, mem)
		require.Equal(t, action.Continue, decision.State, "attempt %d", i)

		QueueIt(newUserRequest("203.0.113.5", "/?queueittoken="+forged), rs, decision, mem)
		assert.Equal(t, "QUEUE", string(decision.HTTPCode))
		assert.False(t, strings.Contains(string(decision.ResponseData), "queueittoken"))
	}

	assert.True(t, mem.BlockList.IsBlocked("203.0.113.5"))
	decision := action.NewDecision()
	TokenFailure(newUserRequest("203.0.113.5", "/"), rs, decision, mem)
	assert.Equal(t, action.Done, decision.State)
	assert.Equal(t, "403", string(decision.HTTPCode))
	assert.Equal(t, SourceTokenFailure, decision.Source)

	decision = action.NewDecision()
	TokenFailure(newUserRequest("198.51.100.1", "/"), rs, decision, mem)
	assert.Equal(t, action.Continue, decision.State)
}

func TestTokenFailureDisabled(t *testing.T) {
	rs := newRuleSet(t)
	rs.TokenFailureRule.Enabled = false
	mem := newSharedMem()

	RecordTokenFailure(newUserRequest("203.0.113.5", "/"), rs, mem)
	assert.Equal(t, int64(0), mem.TokenFailureCounter.Query("203.0.113.5", 60))

	decision := action.NewDecision()
	TokenFailure(newUserRequest("203.0.113.5", "/"), rs, decision, mem)
	assert.Equal(t, action.Continue, decision.State)
}
