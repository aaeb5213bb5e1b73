package doimeta

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/matsen/shelf/internal/paper"
)

// fieldRe matches one BibTeX field assignment: identifier = {value} or
// identifier = "value". This is deliberately not a full BibTeX grammar;
// any text with such pairs is accepted and unrecognized fields are ignored.
var fieldRe = regexp.MustCompile(`(\w+)\s*=\s*(?:\{([^{}]*)\}|"([^"]*)")`)

// pagesFieldRe matches an existing pages field for in-place replacement.
var pagesFieldRe = regexp.MustCompile(`(?i)(pages\s*=\s*)(?:\{[^{}]*\}|"[^"]*")`)

// yearFieldRe matches the year field, used as the splice anchor for pages.
var yearFieldRe = regexp.MustCompile(`(?i)year\s*=\s*(?:\{[^{}]*\}|"[^"]*")`)

// andSplitRe splits an author list on the literal " and " separator,
// case-insensitively.
var andSplitRe = regexp.MustCompile(`(?i) and `)

// nonAlphaRe strips everything but letters from a surname.
var nonAlphaRe = regexp.MustCompile(`[^a-zA-Z]`)

// ParseBibInfo extracts the structured field set from BibTeX text via a
// tolerant field-pattern scan. Absent fields are left as empty strings.
func ParseBibInfo(bibtex string) paper.BibInfo {
	var info paper.BibInfo
	for _, m := range fieldRe.FindAllStringSubmatch(bibtex, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		switch strings.ToLower(m[1]) {
		case "title":
			info.Title = value
		case "author":
			info.Author = value
		case "journal":
			info.Journal = value
		case "year":
			info.Year = value
		case "month":
			info.Month = value
		case "volume":
			info.Volume = value
		case "number":
			info.Number = value
		case "pages":
			info.Pages = value
		}
	}
	return info
}

// AddPagesToBibtex splices a pages field into BibTeX text. An existing pages
// field has its value replaced. Otherwise the new field is inserted
// immediately after the year field, after the first field if there is no
// year, or not at all if the text contains no field.
func AddPagesToBibtex(bibtex, pages string) string {
	if pagesFieldRe.MatchString(bibtex) {
		return pagesFieldRe.ReplaceAllString(bibtex, fmt.Sprintf("${1}{%s}", pages))
	}

	anchor := yearFieldRe.FindStringIndex(bibtex)
	if anchor == nil {
		anchor = fieldRe.FindStringIndex(bibtex)
	}
	if anchor == nil {
		return bibtex
	}

	end := anchor[1]
	field := fmt.Sprintf("pages = {%s}", pages)
	if end < len(bibtex) && bibtex[end] == ',' {
		// Reuse the existing trailing comma and add our own.
		return bibtex[:end+1] + "\n  " + field + "," + bibtex[end+1:]
	}
	return bibtex[:end] + ",\n  " + field + bibtex[end:]
}

// FormatAuthors renders a BibTeX author list for display: authors split on
// " and ", each "Last, First" flipped to "First Last", joined with ", ".
func FormatAuthors(authors string) string {
	if authors == "" {
		return ""
	}
	parts := andSplitRe.Split(authors, -1)
	formatted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if last, first, ok := strings.Cut(p, ","); ok {
			p = strings.TrimSpace(first) + " " + strings.TrimSpace(last)
		}
		formatted = append(formatted, p)
	}
	return strings.Join(formatted, ", ")
}

// GenerateDefaultKey derives a citation key from the first author's surname
// and the publication year, e.g. "Doe2022". On collision with existing keys
// it appends successive lowercase letters: "Doe2022a", "Doe2022b", ….
func GenerateDefaultKey(info paper.BibInfo, exists func(key string) bool) string {
	surname := firstAuthorSurname(info.Author)
	base := titlecase(nonAlphaRe.ReplaceAllString(surname, "")) + info.Year

	key := base
	for i := 0; exists(key); i++ {
		key = base + string(rune('a'+i))
	}
	return key
}

// firstAuthorSurname extracts the surname of the first author in a BibTeX
// author list. "Last, First" takes the part before the comma; otherwise the
// last whitespace-separated token.
func firstAuthorSurname(authors string) string {
	first := strings.TrimSpace(andSplitRe.Split(authors, 2)[0])
	if last, _, ok := strings.Cut(first, ","); ok {
		return strings.TrimSpace(last)
	}
	tokens := strings.Fields(first)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// titlecase uppercases the first rune and lowercases the rest.
func titlecase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
