package config

import "strings"

// DefaultUpstreamURL is used when no chat service address is configured.
const DefaultUpstreamURL = "http://127.0.0.1:11434"

const bindAllAddress = "0.0.0.0"

// NormalizeBaseURL turns a loosely written upstream address into a base URL:
// blank becomes the loopback default, a bind-all host is rewritten to
// loopback, a missing scheme gets http:// and trailing slashes are dropped.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return DefaultUpstreamURL
	}

	scheme := "http://"
	for _, s := range []string{"http://", "https://"} {
		if strings.HasPrefix(u, s) {
			scheme = s
			u = strings.TrimPrefix(u, s)
			break
		}
	}

	if strings.HasPrefix(u, bindAllAddress) {
		u = "127.0.0.1" + strings.TrimPrefix(u, bindAllAddress)
	}

	return strings.TrimRight(scheme+u, "/")
}
