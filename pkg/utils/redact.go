package utils

import "strings"

// RedactEmail masks an email address for logs: "john.doe@example.com" -> "jo***@example.com".
// Local parts of two characters or fewer are fully masked.
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone keeps only the last three digits: "+15550001234" -> "***234".
func RedactPhone(phone string) string {
	var digits []rune
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 3 {
		return "***"
	}
	return "***" + string(digits[len(digits)-3:])
}

// maskPrefix marks a secret that was masked for display.
const maskPrefix = "****"

// MaskSecret hides a credential for API responses, keeping the last four
// characters of long values so admins can tell keys apart.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskPrefix
	}
	return maskPrefix + s[len(s)-4:]
}

// IsMasked reports whether s is blank or a value produced by MaskSecret,
// i.e. not a new secret typed by an admin.
func IsMasked(s string) bool {
	return strings.TrimSpace(s) == "" || strings.HasPrefix(s, maskPrefix)
}
