package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"todd/internal/service"
)

// loadDraft reads the draft saved by a failed add.
func loadDraft(path string) (*service.Draft, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no saved draft")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	var d service.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("invalid draft file: %w", err)
	}
	return &d, nil
}

// saveDraft keeps a draft for `todd add --retry`.
func saveDraft(path string, d *service.Draft) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func clearDraft(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
