package fieldcipher

import "fmt"

// Codec applies a Cipher to a named set of protected fields at the
// record-mapping boundary. Keeping the field list on the codec, not scattered
// across call sites, is what guarantees no code path persists a protected
// field in plaintext.
//
// Protected fields must hold string values: a decrypted envelope is always a
// string, so any other type could not survive a round-trip. Structured values
// go through [Cipher.EncryptJSON] explicitly, where the caller owns both
// sides of the conversion.
type Codec struct {
	cipher *Cipher
	fields []string
}

// NewCodec creates a codec over the given protected field names.
func NewCodec(c *Cipher, fields ...string) (*Codec, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: cipher is nil", ErrKeyInvalid)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("fieldcipher: codec requires at least one field")
	}
	names := make([]string, len(fields))
	copy(names, fields)
	return &Codec{cipher: c, fields: names}, nil
}

// Fields returns the protected field names handled by this codec.
func (d *Codec) Fields() []string {
	out := make([]string, len(d.fields))
	copy(out, d.fields)
	return out
}

// EncryptRecord returns a copy of record with every protected field value
// replaced by its envelope token. Encryption failure is fatal to the write:
// the caller must not persist the record when an error is returned.
func (d *Codec) EncryptRecord(record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}

	for _, field := range d.fields {
		value, ok := out[field]
		if !ok || value == nil {
			continue
		}
		plaintext, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("fieldcipher: field %q must be a string, got %T", field, value)
		}
		token, err := d.cipher.Encrypt(plaintext)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		out[field] = token
	}

	return out, nil
}

// DecryptRecord returns a copy of record with every protected field decoded.
// A field that fails to decrypt is redacted to nil and reported in the
// returned slice; a corrupted single field must not block retrieval of the
// whole record.
func (d *Codec) DecryptRecord(record map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}

	var redacted []string
	for _, field := range d.fields {
		value, ok := out[field]
		if !ok || value == nil {
			continue
		}
		token, ok := value.(string)
		if !ok {
			out[field] = nil
			redacted = append(redacted, field)
			continue
		}
		plaintext, err := d.cipher.Decrypt(token)
		if err != nil {
			out[field] = nil
			redacted = append(redacted, field)
			continue
		}
		out[field] = plaintext
	}

	return out, redacted
}
