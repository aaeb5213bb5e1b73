// Package export projects the collection into its on-disk and on-wire
// shapes: the full and light JSON documents and the BibTeX text aggregate.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/matsen/shelf/internal/paper"
)

// Record pairs a citation key with its raw record, in collection order.
type Record struct {
	Key   string
	Paper paper.Paper
}

// FullDocument serializes records as the canonical collection document:
// a JSON object keyed by citation key with sparse on-disk field names.
func FullDocument(records []Record) ([]byte, error) {
	doc := make(map[string]paper.Paper, len(records))
	for _, r := range records {
		doc[r.Key] = r.Paper
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding collection document: %w", err)
	}
	return data, nil
}

// LightDocument serializes records in the light format: user-entered data
// only, fetched bibliographic fields dropped.
func LightDocument(records []Record) ([]byte, error) {
	doc := make(map[string]paper.LightPaper, len(records))
	for _, r := range records {
		doc[r.Key] = r.Paper.Light()
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding light document: %w", err)
	}
	return data, nil
}
