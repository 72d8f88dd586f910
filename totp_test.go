package medguard

import (
	"strings"
	"testing"
	"time"
)

func TestTOTPVerifyRFCVectorsSHA1(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "MedGuard",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      0,
	})
	secret := []byte("12345678901234567890")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	for _, tc := range cases {
		ok, err := m.VerifyCode(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA1 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPVerifyRFCVectorsSHA256(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "MedGuard",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA256",
		Skew:      0,
	})
	secret := []byte("12345678901234567890123456789012")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "46119246"},
		{1111111109, "68084774"},
		{1111111111, "67062674"},
		{1234567890, "91819424"},
		{2000000000, "90698825"},
		{20000000000, "77737706"},
	}

	for _, tc := range cases {
		ok, err := m.VerifyCode(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA256 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPSkewWindow(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "MedGuard",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})
	secret := []byte("12345678901234567890")
	now := time.Unix(1111111111, 0)
	baseCounter := now.Unix() / 30

	for _, offset := range []int64{-1, 0, 1} {
		code, err := hotpCode(secret, baseCounter+offset, 6, "SHA1")
		if err != nil {
			t.Fatalf("hotpCode failed: %v", err)
		}
		ok, err := m.VerifyCode(secret, code, now)
		if err != nil || !ok {
			t.Fatalf("offset %d within skew must verify, ok=%v err=%v", offset, ok, err)
		}
	}

	for _, offset := range []int64{-3, 3} {
		code, err := hotpCode(secret, baseCounter+offset, 6, "SHA1")
		if err != nil {
			t.Fatalf("hotpCode failed: %v", err)
		}
		if ok, _ := m.VerifyCode(secret, code, now); ok {
			t.Fatalf("offset %d outside skew must be rejected", offset)
		}
	}
}

func TestTOTPRejectsMalformedCodes(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Digits: 6, Period: 30, Algorithm: "SHA1", Skew: 1})
	secret := []byte("12345678901234567890")

	for _, code := range []string{"", "12345", "1234567", "abcdef", "12345x"} {
		if ok, err := m.VerifyCode(secret, code, time.Now()); ok || err != nil {
			t.Fatalf("code %q must be rejected without error, ok=%v err=%v", code, ok, err)
		}
	}
}

func TestTOTPGenerateSecretAndURI(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "MedGuard", Digits: 6, Period: 30, Algorithm: "SHA1", Skew: 1})

	raw, encoded, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if len(raw) != totpSecretBytes {
		t.Fatalf("expected %d secret bytes, got %d", totpSecretBytes, len(raw))
	}

	decoded, err := decodeSecretBase32(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatal("base32 encoding does not round-trip")
	}

	uri := m.ProvisionURI(encoded, "alice@clinic.test")
	if !strings.HasPrefix(uri, "otpauth://totp/") || !strings.Contains(uri, "secret="+encoded) {
		t.Fatalf("unexpected provisioning uri %s", uri)
	}
}

func TestTOTPRejectsUnsupportedAlgorithm(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Digits: 6, Period: 30, Algorithm: "MD5", Skew: 0})

	if _, err := m.VerifyCode([]byte("12345678901234567890"), "123456", time.Now()); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}
