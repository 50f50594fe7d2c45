package logger

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^([^@]{1,3})[^@]*(@.+)$`)

// MaskEmail keeps the first three characters and the domain.
// Example: john.doe@example.com -> joh***@example.com
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	if matches := emailRegex.FindStringSubmatch(email); len(matches) == 3 {
		return matches[1] + "***" + matches[2]
	}
	if _, domain, ok := strings.Cut(email, "@"); ok {
		return "***@" + domain
	}
	return "***"
}

// MaskIP keeps the first two octets of IPv4 and the first four groups of IPv6.
func MaskIP(ip string) string {
	switch {
	case ip == "":
		return ""
	case strings.Count(ip, ".") == 3:
		parts := strings.Split(ip, ".")
		return parts[0] + "." + parts[1] + ".*.*"
	case strings.Contains(ip, ":"):
		parts := strings.Split(ip, ":")
		if len(parts) >= 4 {
			return strings.Join(parts[:4], ":") + ":*:*:*:*"
		}
	}
	return "***"
}

// MaskToken keeps only the last six characters of a token.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return "***" + token[len(token)-6:]
}
