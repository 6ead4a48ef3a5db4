package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/speedy-lang/sweep/internal/models"
)

func ParseJSONSweepFile(reader io.Reader) (*SweepFile, error) {
	var data SweepFile
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON sweep file: %w", err)
	}

	return &data, nil
}

func ParseJSONResult(reader io.Reader) (*models.Metrics, error) {
	var data models.Metrics
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON result: %w", err)
	}

	return &data, nil
}
