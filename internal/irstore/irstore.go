// Package irstore is the content-addressed on-disk store for event and
// endpoint IRs (spec.md §3 C3). Every write is keyed by the artifact's
// logical identity (contract+event, or endpoint path) but content is
// hashed so the store can detect whether a regeneration actually
// changed anything, refusing to silently clobber an IR produced from
// different inputs (spec.md §9 "IR provenance").
package irstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// Store reads and writes IR JSON files under a base directory, never the
// process working directory (spec.md §9 "Global cwd-dependent file I/O").
type Store struct {
	BaseDir string
}

// New returns a Store rooted at baseDir (expected to contain an "ir/" tree).
func New(baseDir string) *Store {
	return &Store{BaseDir: baseDir}
}

func (s *Store) specPath(key string) string {
	return filepath.Join(s.BaseDir, "ir", "specs", key+".json")
}

func (s *Store) endpointPath(slug string) string {
	return filepath.Join(s.BaseDir, "ir", "endpoints", slug+".json")
}

// contentHash returns a stable hash of the IR's generation-relevant
// identity: everything except the fields the hash itself doesn't cover.
// We hash the full canonical (stable-key-order) JSON encoding, which is
// how the files are persisted, so "byte-identical on repeat generation"
// (spec.md §8 IR purity) is exactly "identical content hash".
func contentHash(v interface{}) (string, []byte, error) {
	data, err := canonicalJSON(v)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), data, nil
}

// canonicalJSON pretty-prints with stable key ordering. encoding/json
// already emits struct fields in declaration order and marshals maps
// with sorted keys, which is sufficient for our structs (no maps inside
// IR types) to diff cleanly in version control, per spec.md §6.
func canonicalJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// PutEvent persists an event IR. If a file already exists at the same
// key with different content AND a different prompt hash, the store
// refuses the overwrite unless force is set — this is the provenance
// guard from spec.md §9.
func (s *Store) PutEvent(e *ir.EventIR, force bool) error {
	path := s.specPath(e.Key())
	return s.put(path, e, e.PromptHash, force)
}

// GetEvent loads a previously persisted event IR.
func (s *Store) GetEvent(contractID, eventName string) (*ir.EventIR, error) {
	path := s.specPath(contractID + "__" + eventName)
	var out ir.EventIR
	if err := s.get(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents loads every event IR under ir/specs/.
func (s *Store) ListEvents() ([]*ir.EventIR, error) {
	dir := filepath.Join(s.BaseDir, "ir", "specs")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list event IRs", err)
	}
	var out []*ir.EventIR
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var e ir.EventIR
		if err := s.get(filepath.Join(dir, entry.Name()), &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, nil
}

// PutEndpoint persists an endpoint IR under the same provenance guard.
func (s *Store) PutEndpoint(e *ir.EndpointIR, force bool) error {
	path := s.endpointPath(ir.Slug(e.EndpointPath))
	return s.put(path, e, e.PromptHash, force)
}

// GetEndpoint loads a previously persisted endpoint IR by path.
func (s *Store) GetEndpoint(endpointPath string) (*ir.EndpointIR, error) {
	path := s.endpointPath(ir.Slug(endpointPath))
	var out ir.EndpointIR
	if err := s.get(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEndpoints loads every endpoint IR under ir/endpoints/.
func (s *Store) ListEndpoints() ([]*ir.EndpointIR, error) {
	dir := filepath.Join(s.BaseDir, "ir", "endpoints")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list endpoint IRs", err)
	}
	var out []*ir.EndpointIR
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var e ir.EndpointIR
		if err := s.get(filepath.Join(dir, entry.Name()), &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, nil
}

func (s *Store) put(path string, v interface{}, promptHash string, force bool) error {
	newHash, data, err := contentHash(v)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode IR", err)
	}

	existing, err := os.ReadFile(path)
	if err == nil {
		existingHash := sha256.Sum256(existing)
		if hex.EncodeToString(existingHash[:]) == newHash {
			// Byte-identical: nothing to do, satisfies idempotence.
			return nil
		}
		if !force {
			var prior struct {
				PromptHash string `json:"prompt_hash"`
			}
			_ = json.Unmarshal(existing, &prior)
			if prior.PromptHash != promptHash {
				return apperr.New(apperr.KindIrValidation,
					"refusing to overwrite "+path+": existing IR has a different prompt hash; pass force to regenerate")
			}
		}
	} else if !os.IsNotExist(err) {
		return apperr.Wrap(apperr.KindInternal, "stat existing IR "+path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.KindInternal, "create IR directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write IR "+path, err)
	}
	return nil
}

func (s *Store) get(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "read IR "+path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.KindInternal, "decode IR "+path, err)
	}
	return nil
}
