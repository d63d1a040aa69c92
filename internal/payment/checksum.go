package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const (
	PayRoute    = "/pg/v1/pay"
	StatusRoute = "/pg/v1/status"

	checksumSeparator = "###"
)

// ComputeChecksum builds the X-VERIFY value PhonePe expects:
// hex(sha256(payload + route + saltKey)) + "###" + saltIndex.
func ComputeChecksum(payload []byte, route, saltKey, saltIndex string) (string, error) {
	if saltKey == "" || saltIndex == "" {
		return "", ErrMissingSaltKey
	}

	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(route))
	h.Write([]byte(saltKey))

	return hex.EncodeToString(h.Sum(nil)) + checksumSeparator + saltIndex, nil
}

// VerifyChecksum reports whether received is exactly the checksum of payload.
// Prefixes, truncations and differing salt indexes never match.
func VerifyChecksum(payload []byte, route, received, saltKey, saltIndex string) bool {
	expected, err := ComputeChecksum(payload, route, saltKey, saltIndex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

func statusPath(merchantID, merchantTransactionID string) string {
	return StatusRoute + "/" + merchantID + "/" + merchantTransactionID
}
