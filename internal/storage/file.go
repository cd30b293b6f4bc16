package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nihanthkethireddy/invite/internal/models"
)

type guestDocument struct {
	Guests []models.Guest `json:"guests"`
}

// FileStore keeps the whole collection in one JSON document. Every mutation
// rewrites the document; callers serialize mutations themselves.
type FileStore struct {
	file string
	seed string
}

// NewFileStore creates a file-backed store. seed may be empty.
func NewFileStore(filePath, seedPath string) *FileStore {
	return &FileStore{file: filePath, seed: seedPath}
}

// ReadAll loads every guest, initializing the document from the seed (or
// empty) when it is missing or unreadable.
func (s *FileStore) ReadAll(ctx context.Context) ([]models.Guest, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Guests, nil
}

// FindByPhone returns the guest with the given canonical phone, or nil
func (s *FileStore) FindByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return findByPhone(doc.Guests, phone), nil
}

// Insert appends a guest
func (s *FileStore) Insert(ctx context.Context, guest models.Guest) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Guests = append(doc.Guests, guest)
	return s.save(doc)
}

// Update replaces the guest with the same id
func (s *FileStore) Update(ctx context.Context, guest models.Guest) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, g := range doc.Guests {
		if g.ID == guest.ID {
			doc.Guests[i] = guest
			return s.save(doc)
		}
	}
	return notFound(guest.ID)
}

// DeleteByID removes the guest with the given id
func (s *FileStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	doc, err := s.load()
	if err != nil {
		return false, err
	}
	kept := doc.Guests[:0]
	for _, g := range doc.Guests {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	if len(kept) == len(doc.Guests) {
		return false, nil
	}
	doc.Guests = kept
	if err := s.save(doc); err != nil {
		return false, err
	}
	return true, nil
}

// Close is a no-op
func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (*guestDocument, error) {
	if doc, ok := readDocument(s.file); ok {
		for i := range doc.Guests {
			normalizeRecord(&doc.Guests[i])
		}
		return doc, nil
	}

	doc := &guestDocument{Guests: make([]models.Guest, 0)}
	if s.seed != "" && s.seed != s.file {
		if seed, ok := readDocument(s.seed); ok {
			doc = seed
			for i := range doc.Guests {
				normalizeRecord(&doc.Guests[i])
			}
		}
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// readDocument reports false for a missing, unparsable or guest-less document.
func readDocument(path string) (*guestDocument, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var raw struct {
		Guests *[]models.Guest `json:"guests"`
	}
	if err := json.Unmarshal(data, &raw); err != nil || raw.Guests == nil {
		return nil, false
	}
	return &guestDocument{Guests: *raw.Guests}, true
}

// save writes the document to a temp file and renames it over the target,
// so readers see either the old or the new document.
func (s *FileStore) save(doc *guestDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.file)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.file); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.file, err)
	}
	return nil
}
