// Package util provides utility functions for the Emily API.
package util

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"math/rand"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand; not for cryptographic purposes.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.Intn(16)])
	}

	return builder.String()
}

// GenerateConnectionID generates a unique connection ID with "conn_" prefix.
func GenerateConnectionID() string {
	return GenerateRandomID("conn_", 32)
}

// GenerateCampaignID generates a unique campaign ID with "camp_" prefix.
func GenerateCampaignID() string {
	return GenerateRandomID("camp_", 32)
}

// GeneratePostID generates a unique post ID with "post_" prefix.
func GeneratePostID() string {
	return GenerateRandomID("post_", 32)
}

// GenerateTemplateID generates a unique template ID with "tmpl_" prefix.
func GenerateTemplateID() string {
	return GenerateRandomID("tmpl_", 32)
}

// GenerateSecureHex generates a random hexadecimal string of the specified
// length from crypto/rand. Use this for tokens that gate access, not just
// display IDs.
func GenerateSecureHex(length int) string {
	if length <= 0 {
		return ""
	}
	buf := make([]byte, (length+1)/2)
	if _, err := cryptorand.Read(buf); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// there is no meaningful fallback for a security token.
		panic("util.GenerateSecureHex: " + err.Error())
	}
	return hex.EncodeToString(buf)[:length]
}

// GenerateOAuthState generates an opaque state token for pending OAuth
// authorizations with "st_" prefix. The state token guards the
// unauthenticated callback, so it draws from crypto/rand.
func GenerateOAuthState() string {
	return "st_" + GenerateSecureHex(40)
}
