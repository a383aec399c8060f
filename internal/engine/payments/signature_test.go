package payments

import (
	"fmt"
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	// Calculated using: echo -n "12345.payload" | openssl dgst -sha256 -hmac "secret"
	expected := "d722a5868f0945dc703cdad9c1d4cb719f7c90477fa861fec0470756bd737ff3"

	got := Sign("secret", 12345, []byte("payload"))

	if got != expected {
		t.Errorf("Sign() = %v, want %v", got, expected)
	}
}

func TestParseSignatureHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr bool
		wantT   int64
		wantSig int
	}{
		{
			name:    "single signature",
			header:  "t=1700000000,v1=abc123",
			wantT:   1700000000,
			wantSig: 1,
		},
		{
			name:    "multiple candidates",
			header:  "t=1700000000,v1=aaa,v1=bbb",
			wantT:   1700000000,
			wantSig: 2,
		},
		{
			name:    "spaces tolerated",
			header:  "t=1700000000, v1=abc",
			wantT:   1700000000,
			wantSig: 1,
		},
		{
			name:    "missing timestamp",
			header:  "v1=abc",
			wantErr: true,
		},
		{
			name:    "missing signature",
			header:  "t=1700000000",
			wantErr: true,
		},
		{
			name:    "garbage timestamp",
			header:  "t=notanumber,v1=abc",
			wantErr: true,
		},
		{
			name:    "empty header",
			header:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseSignatureHeader(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed.Timestamp != tt.wantT {
				t.Errorf("timestamp = %d, want %d", parsed.Timestamp, tt.wantT)
			}
			if len(parsed.Signatures) != tt.wantSig {
				t.Errorf("got %d signatures, want %d", len(parsed.Signatures), tt.wantSig)
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Unix(1700000000, 0)

	header := func(ts int64, sigs ...string) string {
		h := fmt.Sprintf("t=%d", ts)
		for _, s := range sigs {
			h += ",v1=" + s
		}
		return h
	}

	t.Run("valid signature accepted", func(t *testing.T) {
		ts := now.Unix()
		h := header(ts, Sign(secret, ts, payload))
		if !VerifySignature(payload, h, secret, now, 5*time.Minute) {
			t.Error("expected valid signature to verify")
		}
	})

	t.Run("second candidate accepted", func(t *testing.T) {
		ts := now.Unix()
		h := header(ts, "deadbeef", Sign(secret, ts, payload))
		if !VerifySignature(payload, h, secret, now, 5*time.Minute) {
			t.Error("expected match on second candidate")
		}
	})

	t.Run("altered payload rejected", func(t *testing.T) {
		ts := now.Unix()
		h := header(ts, Sign(secret, ts, payload))
		tampered := append([]byte{}, payload...)
		tampered[0] = 'X'
		if VerifySignature(tampered, h, secret, now, 5*time.Minute) {
			t.Error("expected tampered payload to fail")
		}
	})

	t.Run("stale timestamp rejected even with valid signature", func(t *testing.T) {
		ts := now.Add(-6 * time.Minute).Unix()
		h := header(ts, Sign(secret, ts, payload))
		if VerifySignature(payload, h, secret, now, 5*time.Minute) {
			t.Error("expected stale delivery to fail the replay window")
		}
	})

	t.Run("future skew rejected", func(t *testing.T) {
		ts := now.Add(10 * time.Minute).Unix()
		h := header(ts, Sign(secret, ts, payload))
		if VerifySignature(payload, h, secret, now, 5*time.Minute) {
			t.Error("expected future-skewed delivery to fail")
		}
	})

	t.Run("edge of window accepted", func(t *testing.T) {
		ts := now.Add(-5 * time.Minute).Unix()
		h := header(ts, Sign(secret, ts, payload))
		if !VerifySignature(payload, h, secret, now, 5*time.Minute) {
			t.Error("expected delivery at the window edge to verify")
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		ts := now.Unix()
		h := header(ts, Sign("other_secret", ts, payload))
		if VerifySignature(payload, h, secret, now, 5*time.Minute) {
			t.Error("expected signature from wrong secret to fail")
		}
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		if VerifySignature(payload, "not-a-header", secret, now, 5*time.Minute) {
			t.Error("expected malformed header to fail")
		}
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		ts := now.Unix()
		h := header(ts, Sign("", ts, payload))
		if VerifySignature(payload, h, "", now, 5*time.Minute) {
			t.Error("expected empty secret to fail closed")
		}
	})
}
