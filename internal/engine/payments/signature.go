package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultReplayTolerance bounds how old (or future-skewed) a signed delivery
// may be before it is rejected as a replay.
const DefaultReplayTolerance = 5 * time.Minute

// SignatureHeader is the parsed form of the provider's signature header:
// t=<unix-seconds>,v1=<hex-hmac>[,v1=<hex-hmac>...]
type SignatureHeader struct {
	Timestamp  int64
	Signatures []string
}

func ParseSignatureHeader(header string) (*SignatureHeader, error) {
	var parsed SignatureHeader
	haveTimestamp := false

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 || kv[1] == "" {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp %q", kv[1])
			}
			parsed.Timestamp = ts
			haveTimestamp = true
		case "v1":
			parsed.Signatures = append(parsed.Signatures, kv[1])
		}
	}

	if !haveTimestamp || len(parsed.Signatures) == 0 {
		return nil, fmt.Errorf("signature header missing t or v1 component")
	}
	return &parsed, nil
}

// Sign computes the hex HMAC-SHA256 digest over "{t}.{payload}".
func Sign(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature authenticates a raw webhook body against its signature
// header. The payload must be the exact bytes read off the wire: anything
// re-encoded after JSON parsing will not reproduce the signed string.
func VerifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) bool {
	if secret == "" {
		return false
	}
	parsed, err := ParseSignatureHeader(header)
	if err != nil {
		return false
	}

	if tolerance <= 0 {
		tolerance = DefaultReplayTolerance
	}
	age := now.Unix() - parsed.Timestamp
	if age < 0 {
		age = -age
	}
	if age > int64(tolerance/time.Second) {
		return false
	}

	expected := []byte(Sign(secret, parsed.Timestamp, payload))
	for _, candidate := range parsed.Signatures {
		if hmac.Equal(expected, []byte(candidate)) {
			return true
		}
	}
	return false
}
