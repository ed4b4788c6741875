package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ppiankov/tabclaim/internal/model"
)

// ErrNotObject is returned when a document or mapping is not a JSON object
var ErrNotObject = errors.New("not a JSON object")

// DecodeDocument reads a document JSON object of table_key -> payload.
// Table order follows the source text. Payload fields other than "table"
// and "caption" are ignored; a payload that is not an object, or a field
// that is not a string, counts as absent.
func DecodeDocument(id, origin string, r io.Reader) (model.Document, error) {
	doc := model.Document{ID: id, Origin: origin, Tables: []model.TableEntry{}}

	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return doc, err
	}

	seen := make(map[string]int)
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return doc, err
		}

		var payload json.RawMessage
		if err := dec.Decode(&payload); err != nil {
			return doc, fmt.Errorf("decode table %q: %w", key, err)
		}

		// A repeated key keeps its first position and takes the last payload
		entry := decodeEntry(key, payload)
		if i, ok := seen[key]; ok {
			doc.Tables[i] = entry
			continue
		}
		seen[key] = len(doc.Tables)
		doc.Tables = append(doc.Tables, entry)
	}

	if _, err := dec.Token(); err != nil {
		return doc, fmt.Errorf("read closing brace: %w", err)
	}

	return doc, nil
}

func decodeEntry(key string, payload json.RawMessage) model.TableEntry {
	entry := model.TableEntry{Key: key}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return entry
	}

	if raw, ok := fields["table"]; ok {
		if err := json.Unmarshal(raw, &entry.Table); err == nil && string(raw) != "null" {
			entry.HasTable = true
		}
	}
	if raw, ok := fields["caption"]; ok {
		if err := json.Unmarshal(raw, &entry.Caption); err == nil && string(raw) != "null" {
			entry.HasCaption = true
		}
	}

	return entry
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return ErrNotObject
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("read table key: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token %v", tok)
	}
	return key, nil
}
