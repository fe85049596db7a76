// Package report persists run and benchmark results as YAML documents.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rairaimanish/kidsGPT/domain/entities"
)

// WriteRun writes the run record to path, creating parent directories
func WriteRun(path string, run *entities.Run) error {
	return write(path, run)
}

// WriteBenchmark writes the benchmark measurements to path
func WriteBenchmark(path string, report *entities.BenchmarkReport) error {
	return write(path, report)
}

// ReadRun loads a run record written by WriteRun
func ReadRun(path string) (*entities.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var run entities.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &run, nil
}

func write(path string, v interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}
