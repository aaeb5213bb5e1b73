// Package paper defines the core domain types for a citation-keyed
// bibliography collection.
package paper

// Paper is one record in a collection, keyed externally by its citation key.
// Bibliographic fields are sparse: a field that is unknown is omitted from
// the on-disk document rather than written as an empty string. The on-disk
// member names (underscore-prefixed) are fixed for round-trip compatibility.
type Paper struct {
	DOI      string   `json:"_doi,omitempty"`
	Title    string   `json:"_title,omitempty"`
	Author   string   `json:"_author,omitempty"`
	Journal  string   `json:"_journal,omitempty"`
	Year     string   `json:"_year,omitempty"`
	Volume   string   `json:"_volume,omitempty"`
	Number   string   `json:"_number,omitempty"`
	Pages    string   `json:"_pages,omitempty"`
	Comments string   `json:"_comments,omitempty"`
	Tags     []string `json:"_tags,omitempty"`
	AlsoRead []string `json:"_alsoread,omitempty"`
}

// LightPaper is the minimal portable projection of a Paper: user-entered
// data only, fetched bibliographic fields dropped.
type LightPaper struct {
	DOI      string   `json:"_doi,omitempty"`
	Comments string   `json:"_comments,omitempty"`
	Tags     []string `json:"_tags,omitempty"`
	AlsoRead []string `json:"_alsoread,omitempty"`
}

// BibInfo is the structured decomposition of a BibTeX record. Fields that
// could not be resolved are empty strings.
type BibInfo struct {
	Title   string `json:"title,omitempty"`
	Author  string `json:"author,omitempty"`
	Journal string `json:"journal,omitempty"`
	Year    string `json:"year,omitempty"`
	Month   string `json:"month,omitempty"`
	Volume  string `json:"volume,omitempty"`
	Number  string `json:"number,omitempty"`
	Pages   string `json:"pages,omitempty"`
}

// Processed is the derived per-record view consumed by filtering and
// rendering: the raw record plus whatever enrichment produced for it.
// BibInfo degrades to {Title: key} when nothing better is known.
type Processed struct {
	Key      string  `json:"key"`
	Paper    Paper   `json:"paper"`
	BibInfo  BibInfo `json:"bib_info"`
	Abstract *string `json:"abstract"`
}

// Light returns the light projection of p.
func (p Paper) Light() LightPaper {
	return LightPaper{
		DOI:      p.DOI,
		Comments: p.Comments,
		Tags:     p.Tags,
		AlsoRead: p.AlsoRead,
	}
}

// Clone returns a deep copy of p. Slices are copied so that mutating the
// clone never aliases the original.
func (p Paper) Clone() Paper {
	c := p
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	if p.AlsoRead != nil {
		c.AlsoRead = append([]string(nil), p.AlsoRead...)
	}
	return c
}

// HasTag reports whether the paper carries the given tag.
func (p Paper) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the paper carries at least one of the given tags.
func (p Paper) HasAnyTag(tags map[string]bool) bool {
	for _, t := range p.Tags {
		if tags[t] {
			return true
		}
	}
	return false
}

// FallbackBibInfo is the BibInfo used when enrichment produced nothing for a
// record: the citation key stands in for the title.
func FallbackBibInfo(key string) BibInfo {
	return BibInfo{Title: key}
}
