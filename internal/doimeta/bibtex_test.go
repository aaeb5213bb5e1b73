package doimeta

import (
	"strings"
	"testing"

	"github.com/matsen/shelf/internal/paper"
)

const sampleBibtex = `@article{Doe2022,
  title = {Adaptive inference under drift},
  author = {Doe, Jane and Roe, Richard},
  journal = {Systematic Biology},
  year = {2022},
  volume = {71},
  number = {4}
}`

func TestParseBibInfo(t *testing.T) {
	tests := []struct {
		name   string
		bibtex string
		want   paper.BibInfo
	}{
		{
			name:   "braced fields",
			bibtex: sampleBibtex,
			want: paper.BibInfo{
				Title:   "Adaptive inference under drift",
				Author:  "Doe, Jane and Roe, Richard",
				Journal: "Systematic Biology",
				Year:    "2022",
				Volume:  "71",
				Number:  "4",
			},
		},
		{
			name:   "quoted fields",
			bibtex: `@article{x, title = "Quoted title", year = "1999"}`,
			want:   paper.BibInfo{Title: "Quoted title", Year: "1999"},
		},
		{
			name:   "unknown fields ignored",
			bibtex: `@article{x, publisher = {Elsevier}, month = {jan}}`,
			want:   paper.BibInfo{Month: "jan"},
		},
		{
			name:   "case-insensitive field names",
			bibtex: `@article{x, TITLE = {Shouty}, Year = {2001}}`,
			want:   paper.BibInfo{Title: "Shouty", Year: "2001"},
		},
		{
			name:   "no fields",
			bibtex: "not bibtex at all",
			want:   paper.BibInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBibInfo(tt.bibtex)
			if got != tt.want {
				t.Errorf("ParseBibInfo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAddPagesToBibtex(t *testing.T) {
	tests := []struct {
		name   string
		bibtex string
		pages  string
		want   string
	}{
		{
			name:   "insert after year with trailing comma",
			bibtex: "@article{x,\n  year = {2022},\n  volume = {7}\n}",
			pages:  "100-110",
			want:   "@article{x,\n  year = {2022},\n  pages = {100-110},\n  volume = {7}\n}",
		},
		{
			name:   "insert after year without trailing comma",
			bibtex: "@article{x,\n  year = {2022}\n}",
			pages:  "7",
			want:   "@article{x,\n  year = {2022},\n  pages = {7}\n}",
		},
		{
			name:   "no year inserts after first field",
			bibtex: "@article{x,\n  title = {T},\n  volume = {3}\n}",
			pages:  "1-2",
			want:   "@article{x,\n  title = {T},\n  pages = {1-2},\n  volume = {3}\n}",
		},
		{
			name:   "existing pages replaced",
			bibtex: "@article{x,\n  pages = {old},\n  year = {2022}\n}",
			pages:  "55-60",
			want:   "@article{x,\n  pages = {55-60},\n  year = {2022}\n}",
		},
		{
			name:   "no fields left unmodified",
			bibtex: "@misc{x}",
			pages:  "1",
			want:   "@misc{x}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddPagesToBibtex(tt.bibtex, tt.pages)
			if got != tt.want {
				t.Errorf("AddPagesToBibtex() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddPagesToBibtexParses(t *testing.T) {
	got := AddPagesToBibtex(sampleBibtex, "833-853")
	info := ParseBibInfo(got)
	if info.Pages != "833-853" {
		t.Errorf("pages after splice = %q, want %q", info.Pages, "833-853")
	}
	if !strings.Contains(got, "year = {2022},\n  pages = {833-853}") {
		t.Errorf("pages not spliced after year:\n%s", got)
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		name    string
		authors string
		want    string
	}{
		{"empty", "", ""},
		{"single last-first", "Doe, Jane", "Jane Doe"},
		{"two authors", "Doe, Jane and Roe, Richard", "Jane Doe, Richard Roe"},
		{"already first-last", "Jane Doe and Richard Roe", "Jane Doe, Richard Roe"},
		{"mixed separator case", "Doe, Jane AND Roe, Richard", "Jane Doe, Richard Roe"},
		{"stray whitespace", "  Doe ,  Jane  ", "Jane Doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAuthors(tt.authors); got != tt.want {
				t.Errorf("FormatAuthors(%q) = %q, want %q", tt.authors, got, tt.want)
			}
		})
	}
}

func TestGenerateDefaultKey(t *testing.T) {
	tests := []struct {
		name     string
		info     paper.BibInfo
		existing []string
		want     string
	}{
		{
			name: "surname plus year",
			info: paper.BibInfo{Author: "Doe, Jane and Roe, Richard", Year: "2022"},
			want: "Doe2022",
		},
		{
			name: "first-last author form",
			info: paper.BibInfo{Author: "Jane van Doe", Year: "2021"},
			want: "Doe2021",
		},
		{
			name:     "single collision",
			info:     paper.BibInfo{Author: "Doe, Jane", Year: "2022"},
			existing: []string{"Doe2022"},
			want:     "Doe2022a",
		},
		{
			name:     "collision appends letters",
			info:     paper.BibInfo{Author: "Doe, Jane", Year: "2022"},
			existing: []string{"Doe2022", "Doe2022a"},
			want:     "Doe2022b",
		},
		{
			name: "non-alphabetic stripped and titlecased",
			info: paper.BibInfo{Author: "O'BRIEN, Pat", Year: "1999"},
			want: "Obrien1999",
		},
		{
			name: "no author no year",
			info: paper.BibInfo{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := make(map[string]bool, len(tt.existing))
			for _, k := range tt.existing {
				taken[k] = true
			}
			got := GenerateDefaultKey(tt.info, func(key string) bool { return taken[key] })
			if got != tt.want {
				t.Errorf("GenerateDefaultKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
