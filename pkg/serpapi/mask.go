package serpapi

import (
	"net/url"
	"strings"
)

// maskKey hides the API key in a string destined for logs, keeping a short
// prefix so requests remain attributable to a key.
func maskKey(s, key string) string {
	if key == "" {
		return s
	}
	prefix := key
	if len(prefix) > 5 {
		prefix = prefix[:5]
	}
	masked := prefix + "*****"
	s = strings.ReplaceAll(s, url.QueryEscape(key), masked)
	return strings.ReplaceAll(s, key, masked)
}
