package fieldcipher

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()

	keys, err := NewStaticKey(testKeyHex)
	require.NoError(t, err)

	c, err := New(keys)
	require.NoError(t, err)
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	cases := []string{
		"hypertension stage 2",
		"patient reports chest pain radiating to left arm",
		"ünïcødé 診断 ✓",
		strings.Repeat("long clinical note ", 500),
		"x",
	}

	for _, plaintext := range cases {
		token, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.NotEqual(t, plaintext, token)

		got, err := c.Decrypt(token)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEmptyInputPassesThrough(t *testing.T) {
	c := newTestCipher(t)

	token, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, token)

	plaintext, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plaintext)
}

func TestFreshIVPerCall(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := c.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two encryptions of the same plaintext must differ")
}

func TestEnvelopeFormatStable(t *testing.T) {
	c := newTestCipher(t)

	token, err := c.Encrypt("diagnosis")
	require.NoError(t, err)

	body, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)

	var env struct {
		IV        string `json:"iv"`
		AuthTag   string `json:"authTag"`
		Encrypted string `json:"encrypted"`
	}
	require.NoError(t, json.Unmarshal(body, &env))

	iv, err := hex.DecodeString(env.IV)
	require.NoError(t, err)
	assert.Len(t, iv, 16)

	tag, err := hex.DecodeString(env.AuthTag)
	require.NoError(t, err)
	assert.Len(t, tag, 16)

	_, err = hex.DecodeString(env.Encrypted)
	require.NoError(t, err)
}

func TestTamperedCiphertextFails(t *testing.T) {
	c := newTestCipher(t)

	token, err := c.Encrypt("tamper target")
	require.NoError(t, err)

	body, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))

	flipHexByte := func(s string) string {
		raw, err := hex.DecodeString(s)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return hex.EncodeToString(raw)
	}

	tampered := []envelope{
		{IV: env.IV, AuthTag: env.AuthTag, Encrypted: flipHexByte(env.Encrypted)},
		{IV: env.IV, AuthTag: flipHexByte(env.AuthTag), Encrypted: env.Encrypted},
		{IV: flipHexByte(env.IV), AuthTag: env.AuthTag, Encrypted: env.Encrypted},
	}

	for _, env := range tampered {
		raw, err := json.Marshal(env)
		require.NoError(t, err)

		_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	}
}

func TestWrongKeyFails(t *testing.T) {
	c := newTestCipher(t)

	token, err := c.Encrypt("keyed data")
	require.NoError(t, err)

	otherKeys, err := NewStaticKey(strings.Repeat("ab", 32))
	require.NoError(t, err)
	other, err := New(otherKeys)
	require.NoError(t, err)

	_, err = other.Decrypt(token)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestMalformedTokenFails(t *testing.T) {
	c := newTestCipher(t)

	for _, token := range []string{
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("not json")),
		base64.StdEncoding.EncodeToString([]byte(`{"iv":"zz","authTag":"zz","encrypted":"zz"}`)),
	} {
		_, err := c.Decrypt(token)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	}
}

func TestStaticKeyValidation(t *testing.T) {
	cases := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not hex", "zzzz"},
		{"too short", "abcd"},
		{"too long", strings.Repeat("ab", 40)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStaticKey(tc.key)
			assert.ErrorIs(t, err, ErrKeyInvalid)
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	in := map[string]any{
		"symptoms":  []any{"fever", "cough"},
		"severity":  float64(3),
		"treatment": "rest and fluids",
	}

	token, err := c.EncryptJSON(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, c.DecryptJSON(token, &out))
	assert.Equal(t, in, out)
}

func TestCodecEncryptsOnlyNamedFields(t *testing.T) {
	c := newTestCipher(t)

	codec, err := NewCodec(c, "diagnosis", "notes")
	require.NoError(t, err)

	record := map[string]any{
		"diagnosis": "type 2 diabetes",
		"notes":     "follow up in 3 months",
		"doctor":    "d-1001",
	}

	stored, err := codec.EncryptRecord(record)
	require.NoError(t, err)

	assert.NotEqual(t, record["diagnosis"], stored["diagnosis"])
	assert.NotEqual(t, record["notes"], stored["notes"])
	assert.Equal(t, "d-1001", stored["doctor"])

	loaded, redacted := codec.DecryptRecord(stored)
	assert.Empty(t, redacted)
	assert.Equal(t, record, loaded)
}

func TestCodecRejectsNonStringField(t *testing.T) {
	c := newTestCipher(t)

	codec, err := NewCodec(c, "diagnosis", "vitals")
	require.NoError(t, err)

	// A non-string protected value cannot round-trip (decryption always
	// yields a string), so the write must fail rather than change the
	// field's type silently.
	_, err = codec.EncryptRecord(map[string]any{
		"diagnosis": "asthma",
		"vitals":    map[string]any{"bp": "120/80"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vitals")

	// Absent and nil protected fields are still fine.
	stored, err := codec.EncryptRecord(map[string]any{
		"diagnosis": "asthma",
		"vitals":    nil,
	})
	require.NoError(t, err)

	loaded, redacted := codec.DecryptRecord(stored)
	assert.Empty(t, redacted)
	assert.Equal(t, "asthma", loaded["diagnosis"])
	assert.Nil(t, loaded["vitals"])
}

func TestCodecRedactsCorruptedField(t *testing.T) {
	c := newTestCipher(t)

	codec, err := NewCodec(c, "diagnosis", "notes")
	require.NoError(t, err)

	stored, err := codec.EncryptRecord(map[string]any{
		"diagnosis": "asthma",
		"notes":     "inhaler prescribed",
	})
	require.NoError(t, err)

	stored["notes"] = "garbage-that-is-not-an-envelope"

	loaded, redacted := codec.DecryptRecord(stored)
	assert.Equal(t, []string{"notes"}, redacted)
	assert.Nil(t, loaded["notes"])
	assert.Equal(t, "asthma", loaded["diagnosis"], "one corrupted field must not block the record")
}
