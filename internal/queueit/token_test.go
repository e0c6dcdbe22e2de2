package queueit

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeToken_None(t *testing.T) {
	tok, err := DecodeToken(url.Values{"item": {"7"}}, "")
	assert.NoError(t, err)
	assert.Nil(t, tok)
	assert.False(t, HasToken(url.Values{"item": {"7"}}, ""))
}

func TestDecodeToken_V2(t *testing.T) {
	query := url.Values{
		"q":  {"abc"},
		"p":  {"obfuscated"},
		"ts": {"1777636800"},
		"h":  {"0123"},
		"rt": {"Queue"},
	}
	tok, err := DecodeToken(query, "")
	require.NoError(t, err)
	v2, ok := tok.(TokenV2)
	require.True(t, ok)
	assert.Equal(t, TokenV2{
		QueueID:      "abc",
		PlaceInQueue: "obfuscated",
		Timestamp:    1777636800,
		Hash:         "0123",
		RedirectType: "Queue",
	}, v2)
}

func TestDecodeToken_V2Malformed(t *testing.T) {
	complete := map[string]string{"q": "abc", "p": "x", "ts": "1777636800", "h": "0123"}
	for missing := range complete {
		query := url.Values{}
		for k, v := range complete {
			if k != missing {
				query.Set(k, v)
			}
		}
		_, err := DecodeToken(query, "")
		assert.ErrorIs(t, err, ErrMalformedToken, "missing %s", missing)
		assert.True(t, HasToken(query, ""))
	}

	query := url.Values{"q": {"abc"}, "p": {"x"}, "ts": {"soon"}, "h": {"0123"}}
	_, err := DecodeToken(query, "")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestDecodeToken_V3(t *testing.T) {
	query := url.Values{"queueittoken": {"e_link~q_q-1~ts_1777636800~ce_true~cv_20~rt_queue~h_abcdef"}}
	tok, err := DecodeToken(query, "")
	require.NoError(t, err)
	v3, ok := tok.(TokenV3)
	require.True(t, ok)
	assert.Equal(t, "q-1", v3.QueueID)
	assert.Equal(t, "link", v3.EventID)
	assert.Equal(t, int64(1777636800), v3.Timestamp)
	assert.Equal(t, 20, v3.CookieValidityMinutes)
	assert.True(t, v3.Extendable)
	assert.Equal(t, "abcdef", v3.Hash)
	assert.Equal(t, "e_link~q_q-1~ts_1777636800~ce_true~cv_20~rt_queue", v3.Raw)
}

func TestDecodeToken_V3HashNotLast(t *testing.T) {
	query := url.Values{"queueittoken": {"e_link~h_abc~q_q_with_underscores~ts_1"}}
	tok, err := DecodeToken(query, "")
	require.NoError(t, err)
	v3 := tok.(TokenV3)
	assert.Equal(t, "e_link~q_q_with_underscores~ts_1", v3.Raw)
	assert.Equal(t, "q_with_underscores", v3.QueueID)
	assert.False(t, v3.Extendable)
}

func TestDecodeToken_V3TakesPrecedence(t *testing.T) {
	query := url.Values{
		"queueittoken": {"e_link~q_v3~ts_1~h_abc"},
		"q":            {"v2"}, "p": {"x"}, "ts": {"1"}, "h": {"def"},
	}
	tok, err := DecodeToken(query, "")
	require.NoError(t, err)
	_, isV3 := tok.(TokenV3)
	assert.True(t, isV3)
}

func TestDecodeToken_V3Malformed(t *testing.T) {
	tests := []string{
		"",
		"e_link~q_q-1~ts_1",
		"e_link~q_q-1~h_abc",
		"e_link~ts_1~h_abc",
		"q_q-1~ts_1~h_abc",
		"e_link~q_q-1~ts_x~h_abc",
		"e_link~q_q-1~ts_1~cv_many~h_abc",
	}
	for _, raw := range tests {
		_, err := DecodeToken(url.Values{"queueittoken": {raw}}, "")
		assert.ErrorIs(t, err, ErrMalformedToken, raw)
	}
}

func TestDecodeToken_V3EmptyValues(t *testing.T) {
	for _, values := range [][]string{nil, {}} {
		var err error
		assert.NotPanics(t, func() {
			_, err = DecodeToken(url.Values{"queueittoken": values}, "")
		})
		assert.ErrorIs(t, err, ErrMalformedToken)
	}
}

func TestDecodeToken_Prefix(t *testing.T) {
	query := url.Values{"qit_queueittoken": {"e_link~q_q-1~ts_1~h_abc"}}
	tok, err := DecodeToken(query, "qit_")
	require.NoError(t, err)
	assert.NotNil(t, tok)

	tok, err = DecodeToken(query, "")
	require.NoError(t, err)
	assert.Nil(t, tok)
}
