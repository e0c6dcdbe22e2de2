package config

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"queue_torii/internal/dataType"
	"queue_torii/internal/queueit"
	"queue_torii/internal/utils"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type MainConfig struct {
	Port                    string   `yaml:"port" validate:"required,numeric"`
	WebPath                 string   `yaml:"web_path" validate:"required,startswith=/"`
	RulePath                string   `yaml:"rule_path" validate:"required"`
	ErrorPage               string   `yaml:"error_page"`
	LogPath                 string   `yaml:"log_path" validate:"required"`
	NodeName                string   `yaml:"node_name"`
	ConnectingHostHeaders   []string `yaml:"connecting_host_headers" validate:"min=1"`
	ConnectingIPHeaders     []string `yaml:"connecting_ip_headers" validate:"min=1"`
	ConnectingURIHeaders    []string `yaml:"connecting_uri_headers" validate:"min=1"`
	ConnectingSchemeHeaders []string `yaml:"connecting_scheme_headers"`
}

func defaultMainConfig() MainConfig {
	return MainConfig{
		Port:                    "25555",
		WebPath:                 "/torii",
		RulePath:                "/www/queue_torii/config/rules",
		ErrorPage:               "/www/queue_torii/config/error_page",
		LogPath:                 "/www/queue_torii/log/",
		NodeName:                "Queue Torii",
		ConnectingHostHeaders:   []string{"Torii-Real-Host"},
		ConnectingIPHeaders:     []string{"Torii-Real-IP"},
		ConnectingURIHeaders:    []string{"Torii-Original-URI"},
		ConnectingSchemeHeaders: []string{"Torii-Real-Scheme"},
	}
}

// LoadMainConfig Read the configuration file and return the configuration object.
// Keys missing from torii.yml keep their defaults.
func LoadMainConfig(basePath string) (*MainConfig, error) {
	defaultCfg := defaultMainConfig()

	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return &defaultCfg, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "torii.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return &defaultCfg, err
	}

	cfg := defaultMainConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &defaultCfg, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	cfg.WebPath = strings.TrimRight(cfg.WebPath, "/")
	if cfg.WebPath == "" {
		cfg.WebPath = defaultCfg.WebPath
	}
	if err := validate.Struct(&cfg); err != nil {
		return &defaultCfg, fmt.Errorf("invalid %s: %w", configPath, err)
	}

	return &cfg, nil
}

// RuleSet stores all rules
type RuleSet struct {
	IPAllowRule      *dataType.IPAllowRule
	URLAllowRule     *dataType.URLAllowRule
	QueueItRule      *dataType.QueueItRule
	TokenFailureRule *dataType.TokenFailureRule
	// QueueValidator is nil when the QueueIt rule is disabled.
	QueueValidator *queueit.Validator
}

// ruleSetWrapper mirrors Server.yml
type ruleSetWrapper struct {
	IPAllowRule      *dataType.IPAllowRule   `yaml:"IPAllow"`
	URLAllowRule     *dataType.URLAllowRule  `yaml:"URLAllow"`
	QueueItRule      *dataType.QueueItRule   `yaml:"QueueIt"`
	TokenFailureRule tokenFailureRuleWrapper `yaml:"TokenFailure"`
}

type tokenFailureRuleWrapper struct {
	Enabled       bool     `yaml:"enabled"`
	FailureLimit  []string `yaml:"failure_limit" validate:"required_if=Enabled true,dive,required"`
	BlockDuration int64    `yaml:"block_duration" validate:"required_if=Enabled true,gte=0"`
}

// LoadRules Load all rules from the specified path. logger receives the
// validator's debug output.
func LoadRules(rulePath string, logger *zap.Logger) (*RuleSet, error) {
	rs := RuleSet{
		IPAllowRule:      &dataType.IPAllowRule{Trie: &dataType.TrieNode{}},
		URLAllowRule:     &dataType.URLAllowRule{List: &dataType.URLRuleList{}},
		QueueItRule:      &dataType.QueueItRule{},
		TokenFailureRule: &dataType.TokenFailureRule{},
	}

	YAMLFile := filepath.Join(rulePath, "Server.yml")
	if err := loadServerRules(YAMLFile, &rs); err != nil {
		return nil, err
	}

	// Load IP Allow List
	if rs.IPAllowRule.Enabled {
		ipAllowFile := filepath.Join(rulePath, "IP_AllowList.conf")
		if err := loadIPRules(ipAllowFile, rs.IPAllowRule.Trie); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", ipAllowFile, err)
		}
	}

	// Load URL Allow List
	if rs.URLAllowRule.Enabled {
		urlAllowFile := filepath.Join(rulePath, "URL_AllowList.conf")
		if err := loadURLRules(urlAllowFile, rs.URLAllowRule.List); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", urlAllowFile, err)
		}
	}

	if rs.QueueItRule.Enabled {
		v, err := newQueueValidator(rs.QueueItRule, logger)
		if err != nil {
			return nil, fmt.Errorf("invalid QueueIt rule in %s: %w", YAMLFile, err)
		}
		rs.QueueValidator = v
	}

	return &rs, nil
}

func loadServerRules(YAMLFile string, rs *RuleSet) error {
	yamlData, err := os.ReadFile(YAMLFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("rules file %s does not exist: %w", YAMLFile, err)
		}
		return fmt.Errorf("failed to read rules file %s: %w", YAMLFile, err)
	}

	var wrapper ruleSetWrapper
	if err := yaml.Unmarshal(yamlData, &wrapper); err != nil {
		return fmt.Errorf("failed to parse rules file %s: %w", YAMLFile, err)
	}

	if wrapper.IPAllowRule != nil {
		rs.IPAllowRule.Enabled = wrapper.IPAllowRule.Enabled
	}
	if wrapper.URLAllowRule != nil {
		rs.URLAllowRule.Enabled = wrapper.URLAllowRule.Enabled
	}
	if wrapper.QueueItRule != nil {
		*rs.QueueItRule = *wrapper.QueueItRule
	}
	if err := validate.Struct(rs.QueueItRule); err != nil {
		return fmt.Errorf("invalid QueueIt rule in %s: %w", YAMLFile, err)
	}

	if err := validate.Struct(&wrapper.TokenFailureRule); err != nil {
		return fmt.Errorf("invalid TokenFailure rule in %s: %w", YAMLFile, err)
	}
	rs.TokenFailureRule.Enabled = wrapper.TokenFailureRule.Enabled
	rs.TokenFailureRule.BlockDuration = wrapper.TokenFailureRule.BlockDuration
	rs.TokenFailureRule.FailureLimit = make(map[int64]int64)
	for _, s := range wrapper.TokenFailureRule.FailureLimit {
		limit, seconds, err := utils.ParseRate(s)
		if err != nil {
			return fmt.Errorf("invalid TokenFailure rule in %s: %w", YAMLFile, err)
		}
		rs.TokenFailureRule.FailureLimit[seconds] = limit
	}
	return nil
}

// newQueueValidator maps the QueueIt rule onto the validator configuration.
// Zero values leave the validator defaults in place.
func newQueueValidator(rule *dataType.QueueItRule, logger *zap.Logger) (*queueit.Validator, error) {
	cfg := queueit.NewConfig(rule.CustomerID, rule.EventID, rule.SecretKey)
	cfg.CookieDomain = rule.CookieDomain
	cfg.QueryPrefix = rule.QueryPrefix
	if rule.CookieExpiration > 0 {
		cfg.CookieExpiration = rule.CookieExpiration
	}
	if rule.ExtendCookieValidity != nil {
		cfg.ExtendValidity = *rule.ExtendCookieValidity
	}
	if rule.QueueDomain != "" {
		cfg.QueueDomain = rule.QueueDomain
	}
	cfg.Logger = logger
	return queueit.NewValidator(cfg)
}

// MaxFailureWindow returns the widest window of the TokenFailure rule, which
// sizes the failure counter.
func (rs *RuleSet) MaxFailureWindow() int64 {
	var maxWindow int64
	for window := range rs.TokenFailureRule.FailureLimit {
		if window > maxWindow {
			maxWindow = window
		}
	}
	return maxWindow
}

// loadIPRules read the IP rule file and insert the rules into the trie
func loadIPRules(filePath string, trie *dataType.TrieNode) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !strings.Contains(line, "/") {
			if strings.Contains(line, ":") {
				line = line + "/128"
			} else {
				line = line + "/32"
			}
		}
		_, ipNet, err := net.ParseCIDR(line)
		if err != nil {
			continue
		}
		trie.Insert(ipNet)
	}

	return scanner.Err()
}

// loadURLRules Load URL rules from the specified file
func loadURLRules(filePath string, list *dataType.URLRuleList) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule := &dataType.URLRule{Pattern: line}
		switch {
		// a single trailing '*' on a plain path is a prefix rule
		case strings.HasSuffix(line, "*") && !strings.ContainsAny(line[:len(line)-1], "^$.*+?()[]{}|\\"):
			rule.IsPrefix = true
		case strings.HasPrefix(line, "^") || strings.HasSuffix(line, "$") || strings.ContainsAny(line, ".*+?()[]{}|\\"):
			compiled, err := regexp.Compile(line)
			if err != nil {
				// skip invalid regex
				continue
			}
			rule.IsRegex = true
			rule.Regex = compiled
		}
		list.Append(rule)
	}

	return scanner.Err()
}

// IsNotExist reports whether err comes from a missing config file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
