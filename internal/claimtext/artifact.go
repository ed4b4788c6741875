package claimtext

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/ppiankov/tabclaim/internal/model"
)

// Artifact describes one written per-table claims file
type Artifact struct {
	Name   string // File name, <document_id>_<position>_claims.json
	Path   string
	Digest string // Hex BLAKE3-256 of the file contents
	Claims int
}

// ArtifactName returns the deterministic file name for a processed table
func ArtifactName(docID string, position int) string {
	return fmt.Sprintf("%s_%d_claims.json", docID, position)
}

// Label returns the artifact key of the n-th claim of a table
func Label(n int) string {
	return fmt.Sprintf("Claim %d", n)
}

// Encode renders a table's claims as a JSON array of single-entry
// {"Claim n": text} objects, four-space indented, in emission order.
func Encode(claims []model.Claim) ([]byte, error) {
	entries := make([]map[string]string, len(claims))
	for i, c := range claims {
		entries[i] = map[string]string{Label(i): Render(c)}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("encode claims: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode reads an artifact back into claim texts, in order
func Decode(data []byte) ([]string, error) {
	var entries []map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		text, ok := e[Label(i)]
		if !ok || len(e) != 1 {
			return nil, fmt.Errorf("%w: entry %d is not keyed %q", ErrMalformed, i, Label(i))
		}
		texts[i] = text
	}
	return texts, nil
}

// Digest returns the hex BLAKE3-256 digest of data
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteArtifact writes a table's claims into dir
func WriteArtifact(dir, docID string, position int, claims []model.Claim) (Artifact, error) {
	data, err := Encode(claims)
	if err != nil {
		return Artifact{}, err
	}

	name := ArtifactName(docID, position)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", name, err)
	}

	return Artifact{
		Name:   name,
		Path:   path,
		Digest: Digest(data),
		Claims: len(claims),
	}, nil
}
