// Package artifact persists the fitted model to local disk. The file is an
// opaque blob as far as the rest of the system is concerned: written once by
// the train stage, read by the serve stage, no versioning.
package artifact

import (
	"fmt"
	"os"

	"github.com/ecominsights/retail-analytics-api/internal/domain"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Save(a *domain.ModelArtifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize model artifact: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model artifact to %s: %w", s.path, err)
	}

	return nil
}

// Load reads the artifact back. A missing file surfaces as an os.IsNotExist
// error so callers can degrade instead of failing.
func (s *Store) Load() (*domain.ModelArtifact, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	a := &domain.ModelArtifact{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact %s: %w", s.path, err)
	}

	return a, nil
}
