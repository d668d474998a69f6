package logger

import (
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveDataPatterns match secrets embedded in free-form values
var sensitiveDataPatterns = []*regexp.Regexp{
	// user:password@ in DSNs and broker URLs
	regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)?([^:/@\s]+):([^@\s]+)@`),
	regexp.MustCompile(`(?i)((password|passwd|secret|token)[\s:=]+)([^;,&\s]+)`),
}

var sensitiveDataReplacements = []string{
	"$1$2:" + redactedValue + "@",
	"$1" + redactedValue,
}

// sensitiveKeywords mark field keys whose values are never logged
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "dsn", "credential",
}

// RedactSensitiveData replaces embedded secrets with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for i, pattern := range sensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, sensitiveDataReplacements[i])
	}
	return input
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}
