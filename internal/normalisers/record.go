// Package normalisers turns CMS content items into flat searchable records.
package normalisers

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
	"github.com/custodia-labs/sercha-fuzzy/internal/textmatch"
)

// blockTag matches block-level tags whose boundaries separate words
var blockTag = regexp.MustCompile(`(?i)</?(p|div|br|hr|li|ul|ol|h[1-6]|blockquote|pre|table|tr|td|th|section|article|header|footer|figure|figcaption)\b[^>]*>`)

// RecordBuilder converts content items into SearchableRecords.
// Safe for concurrent use.
type RecordBuilder struct {
	policy   *bluemonday.Policy
	phonetic bool
}

// NewRecordBuilder creates a RecordBuilder. When phonetic is set, every
// non-empty text field gets its phonetic keys stored on the record.
func NewRecordBuilder(phonetic bool) *RecordBuilder {
	return &RecordBuilder{
		policy:   bluemonday.StrictPolicy(),
		phonetic: phonetic,
	}
}

// Plaintext strips all markup from s, decodes entities and collapses whitespace.
func (b *RecordBuilder) Plaintext(s string) string {
	if s == "" {
		return ""
	}
	spaced := blockTag.ReplaceAllString(s, " $0 ")
	stripped := html.UnescapeString(b.policy.Sanitize(spaced))
	return strings.Join(strings.Fields(stripped), " ")
}

// Build flattens item into a record. Eligibility is not checked here.
func (b *RecordBuilder) Build(item *domain.ContentItem) *domain.SearchableRecord {
	rec := &domain.SearchableRecord{
		ID:       item.ID,
		Type:     item.Type,
		Title:    b.Plaintext(item.Title),
		Excerpt:  b.Plaintext(item.Excerpt),
		Content:  b.Plaintext(item.Content),
		Category: strings.TrimSpace(item.Category),
		Author:   strings.TrimSpace(item.Author),
	}
	if item.PublishedAt != nil {
		t := *item.PublishedAt
		rec.PublishedAt = &t
	}
	for _, tag := range item.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			rec.Tags = append(rec.Tags, tag)
		}
	}

	if b.phonetic {
		rec.Phonetic = make(map[string]string)
		for _, field := range domain.SearchableFields() {
			if keys := textmatch.PhoneticString(rec.FieldText(field)); keys != "" {
				rec.Phonetic[field] = keys
			}
		}
	}

	return rec
}
