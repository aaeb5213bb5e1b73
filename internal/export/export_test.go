package export

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/matsen/shelf/internal/paper"
)

func TestFullDocument(t *testing.T) {
	records := []Record{
		{Key: "Doe2022", Paper: paper.Paper{
			DOI:      "10.1/a",
			Title:    "A Title",
			Year:     "2022",
			Tags:     []string{"ml"},
			AlsoRead: []string{"Roe2021"},
		}},
		{Key: "Roe2021", Paper: paper.Paper{Comments: "skim"}},
	}

	data, err := FullDocument(records)
	if err != nil {
		t.Fatalf("FullDocument() error = %v", err)
	}

	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(doc) != 2 {
		t.Fatalf("doc has %d keys, want 2", len(doc))
	}

	doe := doc["Doe2022"]
	if doe["_doi"] != "10.1/a" || doe["_title"] != "A Title" || doe["_year"] != "2022" {
		t.Errorf("on-disk fields wrong: %v", doe)
	}
	// Sparse encoding: absent fields are omitted, not written empty.
	if _, ok := doe["_journal"]; ok {
		t.Error("empty field _journal written to document")
	}
	if _, ok := doc["Roe2021"]["_tags"]; ok {
		t.Error("nil tags written to document")
	}
}

func TestFullDocumentRoundTripsWithLoader(t *testing.T) {
	original := paper.Paper{
		DOI:      "10.1/a",
		Title:    "A Title",
		Author:   "Doe, Jane",
		Journal:  "J",
		Year:     "2022",
		Volume:   "7",
		Number:   "2",
		Pages:    "1-9",
		Comments: "read twice",
		Tags:     []string{"ml", "bio"},
		AlsoRead: []string{"Roe2021"},
	}
	data, err := FullDocument([]Record{{Key: "Doe2022", Paper: original}})
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]paper.Paper
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(doc["Doe2022"], original) {
		t.Errorf("round trip changed the record:\n got %+v\nwant %+v", doc["Doe2022"], original)
	}
}

func TestLightDocument(t *testing.T) {
	records := []Record{
		{Key: "Doe2022", Paper: paper.Paper{
			DOI:      "10.1/a",
			Title:    "dropped",
			Author:   "dropped",
			Comments: "kept",
			Tags:     []string{"ml"},
		}},
	}

	data, err := LightDocument(records)
	if err != nil {
		t.Fatalf("LightDocument() error = %v", err)
	}

	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	doe := doc["Doe2022"]
	if doe["_doi"] != "10.1/a" || doe["_comments"] != "kept" {
		t.Errorf("light fields wrong: %v", doe)
	}
	if _, ok := doe["_title"]; ok {
		t.Error("bibliographic field leaked into the light document")
	}
	if _, ok := doe["_author"]; ok {
		t.Error("bibliographic field leaked into the light document")
	}
}
