package route

import "strings"

var placeholderKeys = []string{
	"YOUR_API_KEY",
	"API_KEY",
	"ENTER_KEY_HERE",
	"PLACEHOLDER",
	"CHANGEME",
}

// placeholderPrefixes cover templates such as YOUR_MAPS_KEY or
// REPLACE_WITH_KEY.
var placeholderPrefixes = []string{"YOUR_", "REPLACE_WITH", "<"}

// ValidAPIKey reports whether key is set and is not one of the template
// placeholders shipped in sample configs.
func ValidAPIKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	upper := strings.ToUpper(key)
	for _, p := range placeholderKeys {
		if upper == p {
			return false
		}
	}
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(upper, p) {
			return false
		}
	}
	return true
}

// MaskAPIKey keeps the first and last four characters for log lines.
func MaskAPIKey(key string) string {
	if key == "" {
		return "none"
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
