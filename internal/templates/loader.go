package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nudiguru/nudiguru-api/internal/feature"
)

// LoadMatrixFile reads a sequence bank from a JSON file of the form
// {"w01": {"ಅ": [[[...frame...], ...], ...]}}.
func LoadMatrixFile(path string) (*Store[feature.Matrix], error) {
	bank, err := loadFile[feature.Matrix](path)
	if err != nil {
		return nil, err
	}
	for lessonID, syllables := range bank {
		for label, refs := range syllables {
			for i, m := range refs {
				if err := checkMatrix(m); err != nil {
					return nil, fmt.Errorf("templates: %s/%s reference %d: %w", lessonID, label, i, err)
				}
			}
		}
	}
	return NewStore("sequence", bank), nil
}

// LoadVectorFile reads an embedding bank from a JSON file of the form
// {"w01": {"ಅ": [[...embedding...], ...]}}.
func LoadVectorFile(path string) (*Store[feature.Vector], error) {
	bank, err := loadFile[feature.Vector](path)
	if err != nil {
		return nil, err
	}
	for lessonID, syllables := range bank {
		for label, refs := range syllables {
			for i, v := range refs {
				if len(v) == 0 {
					return nil, fmt.Errorf("templates: %s/%s reference %d: empty embedding", lessonID, label, i)
				}
			}
		}
	}
	return NewStore("vector", bank), nil
}

func loadFile[T any](path string) (Bank[T], error) {
	f, err := os.Open(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("templates: open bank: %w", err)
	}
	defer func() { _ = f.Close() }()

	return decodeBank[T](f)
}

func decodeBank[T any](r io.Reader) (Bank[T], error) {
	var bank Bank[T]
	if err := json.NewDecoder(r).Decode(&bank); err != nil {
		return nil, fmt.Errorf("templates: decode bank: %w", err)
	}
	if bank == nil {
		bank = Bank[T]{}
	}
	return bank, nil
}

func checkMatrix(m feature.Matrix) error {
	if len(m) == 0 {
		return errors.New("no frames")
	}
	width := len(m[0])
	for i, row := range m {
		if len(row) != width || width == 0 {
			return fmt.Errorf("frame %d has %d coefficients, want %d", i, len(row), width)
		}
	}
	return nil
}
