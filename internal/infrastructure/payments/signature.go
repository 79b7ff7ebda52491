package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signHex returns the lowercase hex HMAC-SHA256 of payload.
func signHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// validHex compares a received hex signature against the expected one in constant time.
// An empty secret or signature never validates.
func validHex(secret string, payload []byte, received string) bool {
	received = strings.ToLower(strings.TrimSpace(received))
	if secret == "" || received == "" {
		return false
	}
	return hmac.Equal([]byte(received), []byte(signHex(secret, payload)))
}

// header returns the first non-empty value among names. Keys are expected lowercased.
func header(headers map[string]string, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(headers[strings.ToLower(n)]); v != "" {
			return v
		}
	}
	return ""
}
