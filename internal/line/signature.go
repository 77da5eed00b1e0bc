package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidateSignature verifies the X-Line-Signature header of a webhook
// delivery. LINE signs the raw request body with HMAC-SHA256 using the
// channel secret and sends the digest base64-encoded.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	h := hmac.New(sha256.New, []byte(channelSecret))
	h.Write(body)

	return hmac.Equal(decoded, h.Sum(nil))
}
