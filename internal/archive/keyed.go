package archive

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// MetaKey is the annotation entry that leads data files keyed by asset
// name. Readers skip every key starting with '_'.
const MetaKey = "_meta"

// EncodeKeyed renders {"_meta": meta, <name>: entry, ...} with the meta
// object first and the entries in sorted key order, indented like Encode.
func EncodeKeyed[T any](meta any, entries map[string]T) ([]byte, error) {
	var raw bytes.Buffer
	raw.WriteByte('{')

	if err := writeMember(&raw, MetaKey, meta); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		raw.WriteByte(',')
		if err := writeMember(&raw, k, entries[k]); err != nil {
			return nil, err
		}
	}
	raw.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, raw.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	k, err := compact(key)
	if err != nil {
		return err
	}
	val, err := compact(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

func compact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeKeyed parses a file written by EncodeKeyed (or any object keyed by
// asset name), skipping annotation keys. Entries that are not JSON objects
// are skipped.
func DecodeKeyed[T any](data []byte) (map[string]T, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raw))
	for k, v := range raw {
		if strings.HasPrefix(k, "_") || !isObject(v) {
			continue
		}
		var entry T
		if err := json.Unmarshal(v, &entry); err != nil {
			return nil, &EntryError{Key: k, Err: err}
		}
		out[k] = entry
	}
	return out, nil
}

// EntryError reports an entry of a keyed file that could not be decoded.
type EntryError struct {
	Key string
	Err error
}

func (e *EntryError) Error() string {
	return "entry " + e.Key + ": " + e.Err.Error()
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

func isObject(v json.RawMessage) bool {
	trimmed := bytes.TrimLeft(v, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
