package dataType

import (
	"net/http"
	"time"
)

const QueueToriiVersion = "2.0.0"

type UserRequest struct {
	RequestID string
	RemoteIP  string
	Scheme    string
	Host      string
	Uri       string
	UserAgent string
	Header    http.Header
}

// QueueItRule is the QueueIt section of Server.yml.
type QueueItRule struct {
	Enabled              bool          `yaml:"enabled"`
	CustomerID           string        `yaml:"customer_id" validate:"required_if=Enabled true"`
	EventID              string        `yaml:"event_id" validate:"required_if=Enabled true"`
	SecretKey            string        `yaml:"secret_key" validate:"required_if=Enabled true"`
	CookieDomain         string        `yaml:"cookie_domain"`
	QueryPrefix          string        `yaml:"query_prefix"`
	CookieExpiration     time.Duration `yaml:"cookie_expiration" validate:"gte=0"`
	ExtendCookieValidity *bool         `yaml:"extend_cookie_validity"`
	QueueDomain          string        `yaml:"queue_domain"`
	TargetPath           string        `yaml:"target_path" validate:"omitempty,startswith=/"`
}

// TokenFailureRule limits how many rejected tokens one IP may present.
// FailureLimit maps a window in seconds to the allowed failures in that window.
type TokenFailureRule struct {
	Enabled       bool `yaml:"enabled"`
	FailureLimit  map[int64]int64
	BlockDuration int64 `yaml:"block_duration"`
}

type IPAllowRule struct {
	Enabled bool `yaml:"enabled"`
	Trie    *TrieNode
}

type URLAllowRule struct {
	Enabled bool `yaml:"enabled"`
	List    *URLRuleList
}

type SharedMemory struct {
	TokenFailureCounter *Counter
	BlockList           *BlockList
}
