// Package artifact implements the content-addressed blob store (§4.1,
// C1): executors that produce binary payloads (textToSpeech,
// imageGeneration, python) save them here and pass only the returned id
// downstream, the way the spec's §6 "Artifact store persistence" and the
// GLOSSARY's "Artifact" entry describe.
package artifact

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

// signature is one entry in the magic-byte sniffing table (§4.1).
type signature struct {
	mime   string
	prefix []byte
}

var signatures = []signature{
	{"image/png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"image/jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"image/gif", []byte{0x47, 0x49, 0x46, 0x38}},
	{"application/pdf", []byte{0x25, 0x50, 0x44, 0x46}},
}

var riffMagic = []byte{0x52, 0x49, 0x46, 0x46}

var extMimes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".wav":  "audio/wav",
	".webp": "image/webp",
	".json": "application/json",
	".txt":  "text/plain",
	".mp3":  "audio/mpeg",
}

const genericMime = "application/octet-stream"

// sniff implements the bit-exact MIME detection rules from §4.1: magic
// bytes first, RIFF container inspection for WAVE/WEBP, then an extension
// fallback keyed off hint (if hint looks like a filename), then the
// generic octet-stream default. If hint is already a specific (non-
// generic) MIME type, i.e. it contains a "/", it is trusted outright.
func sniff(blob []byte, hint string) string {
	if hint != "" && hint != genericMime && strings.Contains(hint, "/") {
		return hint
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(blob, sig.prefix) {
			return sig.mime
		}
	}
	if bytes.HasPrefix(blob, riffMagic) && len(blob) >= 12 {
		switch string(blob[8:12]) {
		case "WAVE":
			return "audio/wav"
		case "WEBP":
			return "image/webp"
		}
	}
	if hint != "" {
		if m, ok := extMimes[strings.ToLower(filepath.Ext(hint))]; ok {
			return m
		}
	}
	return genericMime
}

// Store is an in-memory ArtifactStore keyed by id, with a secondary index
// by category that keeps each category's ids in creation order (Delete
// removes an id from it). There is no separate createdAt index.
type Store struct {
	mu        sync.RWMutex
	artifacts map[string]model.Artifact
	byCategory map[string][]string // category -> ordered artifact ids
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		artifacts:  make(map[string]model.Artifact),
		byCategory: make(map[string][]string),
	}
}

var _ plugin.ArtifactStore = (*Store)(nil)

// Save stores blob under a fresh uuid, detecting its MIME type per §4.1.
// mimeHint is the caller-supplied type (may be empty or generic); empty
// or zero-length blobs are rejected with InvalidInput.
func (s *Store) Save(ctx context.Context, blob []byte, category, mimeHint string) (model.Artifact, error) {
	select {
	case <-ctx.Done():
		return model.Artifact{}, ctx.Err()
	default:
	}
	if len(blob) == 0 {
		return model.Artifact{}, model.NewError(model.ErrInvalidInput, "blob is empty")
	}
	now := time.Now().UTC()
	a := model.Artifact{
		ID:        uuid.NewString(),
		Blob:      append([]byte(nil), blob...),
		MimeType:  sniff(blob, mimeHint),
		Category:  category,
		Size:      len(blob),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.artifacts[a.ID] = a
	s.byCategory[category] = append(s.byCategory[category], a.ID)
	s.mu.Unlock()
	return a, nil
}

// Get returns the artifact and its metadata, or ok=false if absent.
func (s *Store) Get(ctx context.Context, id string) (model.Artifact, bool, error) {
	select {
	case <-ctx.Done():
		return model.Artifact{}, false, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	return a, ok, nil
}

// Delete removes an artifact by id, returning false if it was absent.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return false
	}
	delete(s.artifacts, id)
	ids := s.byCategory[a.Category]
	for i, v := range ids {
		if v == id {
			s.byCategory[a.Category] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true
}

// List returns metadata only (no blobs), optionally filtered by category.
func (s *Store) List(ctx context.Context, category string) []model.ArtifactMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	if category != "" {
		ids = s.byCategory[category]
	} else {
		for id := range s.artifacts {
			ids = append(ids, id)
		}
	}
	out := make([]model.ArtifactMetadata, 0, len(ids))
	for _, id := range ids {
		a := s.artifacts[id]
		out = append(out, model.ArtifactMetadata{
			ID: a.ID, MimeType: a.MimeType, Category: a.Category,
			Size: a.Size, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
		})
	}
	return out
}

// Stats reports the store's overall count and total blob size.
func (s *Store) Stats(ctx context.Context) model.ArtifactStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := model.ArtifactStats{}
	for _, a := range s.artifacts {
		stats.Count++
		stats.TotalSize += a.Size
	}
	return stats
}

// ClearAll removes every artifact.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = make(map[string]model.Artifact)
	s.byCategory = make(map[string][]string)
}
