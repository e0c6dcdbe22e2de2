package queueit

import "net/url"

// Version is reported to the queue service as ver=n<Version>.
const Version = "2.0.0"

// BuildQueueURL returns the waiting-room URL that sends a visitor to the queue for
// cfg's event and back to targetURL afterwards.
func BuildQueueURL(cfg Config, targetURL string) string {
	domain := cfg.QueueDomain
	if domain == "" {
		domain = DefaultQueueDomain
	}
	query := url.Values{}
	query.Set("c", cfg.CustomerID)
	query.Set("e", cfg.EventID)
	query.Set("t", targetURL)
	query.Set("ver", "n"+Version)
	// Encode sorts keys, which yields the c, e, t, ver order the service expects.
	return "http://" + cfg.CustomerID + "." + domain + "/?" + query.Encode()
}
