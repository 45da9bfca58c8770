package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// DomainSnapshot prefixes snapshot digests. The version suffix allows a
// future algorithm change.
const DomainSnapshot = "fieldflow/snapshot/v1"

// Digest computes the content digest of a save. Deleted keys are omitted.
// Format: SHA256(domain + 0x00 + canonical JSON object).
func Digest(values map[string]*string) (string, error) {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(&buf, k); err != nil {
			return "", err
		}
		buf.WriteByte(':')
		if err := writeCanonicalString(&buf, *values[k]); err != nil {
			return "", err
		}
	}
	buf.WriteByte('}')

	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00}) // Null separator prevents domain/data ambiguity
	h.Write(buf.Bytes())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeCanonicalString writes s NFC-normalized as a JSON string without
// HTML escaping.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}
