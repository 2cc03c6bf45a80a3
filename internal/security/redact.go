// Package security masks credentials before they reach terminals or logs.
package security

import (
	"regexp"
	"strings"

	"crypto-scalper/internal/config"
)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|key[_-]?id|apca-api-[a-z-]+|bearer|authorization)([=:\s]+["']?)([A-Za-z0-9_\-\.]{8,})`),
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{20,}`),
	regexp.MustCompile(`\b(?:PK|AK)[A-Z0-9]{16,}\b`),
}

// MaskCredential keeps the first and last four characters of long values.
func MaskCredential(value string) string {
	switch n := len(value); {
	case n == 0:
		return ""
	case n <= 4:
		return strings.Repeat("*", n)
	case n <= 8:
		return value[:2] + strings.Repeat("*", n-2)
	default:
		return value[:4] + strings.Repeat("*", n-8) + value[n-4:]
	}
}

// Redact masks anything in s that looks like an API key or auth header.
func Redact(s string) string {
	s = secretPatterns[0].ReplaceAllStringFunc(s, func(m string) string {
		sub := secretPatterns[0].FindStringSubmatch(m)
		return sub[1] + sub[2] + MaskCredential(sub[3])
	})
	for _, p := range secretPatterns[1:] {
		s = p.ReplaceAllStringFunc(s, MaskCredential)
	}
	return s
}

// ContainsSecret reports whether s carries anything Redact would mask.
func ContainsSecret(s string) bool {
	for _, p := range secretPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// MaskedCredentials returns a copy of creds safe to print.
func MaskedCredentials(creds config.Credentials) config.Credentials {
	creds.Alpaca.KeyID = MaskCredential(creds.Alpaca.KeyID)
	creds.Alpaca.SecretKey = MaskCredential(creds.Alpaca.SecretKey)
	creds.OpenAI.APIKey = MaskCredential(creds.OpenAI.APIKey)
	return creds
}
