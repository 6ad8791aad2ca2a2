package results

import (
	"encoding/json"
	"fmt"
	"os"
)

// ToJSON renders a report as indented JSON.
func ToJSON(report *Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

// FromJSON parses a report from its JSON form. Reports with a newer
// schema version still parse; callers should check Version when the
// distinction matters.
func FromJSON(jsonStr string) (*Report, error) {
	var report Report
	if err := json.Unmarshal([]byte(jsonStr), &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// WriteJSON saves a report to a JSON file.
func WriteJSON(report *Report, filename string) error {
	s, err := ToJSON(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(s), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// ReadJSON loads a report from a JSON file.
func ReadJSON(filename string) (*Report, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return FromJSON(string(data))
}
