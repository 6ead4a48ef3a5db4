package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/speedy-lang/sweep/internal/models"
)

func ParseYAMLSweepFile(reader io.Reader) (*SweepFile, error) {
	var data SweepFile
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML sweep file: %w", err)
	}

	return &data, nil
}

func ParseYAMLResult(reader io.Reader) (*models.Metrics, error) {
	var data models.Metrics
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML result: %w", err)
	}

	return &data, nil
}
