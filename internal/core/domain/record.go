package domain

import (
	"strings"
	"time"
)

// IndexType names a cached search index
type IndexType string

const (
	IndexTypePosts      IndexType = "posts"
	IndexTypeTags       IndexType = "tags"
	IndexTypeCategories IndexType = "categories"
)

// AllIndexTypes lists every index type the store maintains
func AllIndexTypes() []IndexType {
	return []IndexType{IndexTypePosts, IndexTypeTags, IndexTypeCategories}
}

// IsValid reports whether t is a known index type
func (t IndexType) IsValid() bool {
	switch t {
	case IndexTypePosts, IndexTypeTags, IndexTypeCategories:
		return true
	}
	return false
}

// ParseIndexType accepts both plural index names and singular entity names
// ("post", "tag", "category").
func ParseIndexType(s string) (IndexType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "posts", "post":
		return IndexTypePosts, true
	case "tags", "tag":
		return IndexTypeTags, true
	case "categories", "category":
		return IndexTypeCategories, true
	}
	return IndexType(s), false
}

// ContentStatus is the publication state of a CMS content item
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusScheduled ContentStatus = "scheduled"
	ContentStatusArchived  ContentStatus = "archived"
)

// ContentItem is a CMS entity as read from the content repository.
// Posts carry every field; tags and categories only use ID, Title and DeletedAt.
type ContentItem struct {
	ID          int64         `json:"id"`
	Type        IndexType     `json:"type"`
	Title       string        `json:"title"`
	Excerpt     string        `json:"excerpt,omitempty"`
	Content     string        `json:"content,omitempty"` // HTML
	Category    string        `json:"category,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Author      string        `json:"author,omitempty"`
	Status      ContentStatus `json:"status,omitempty"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

// IsEligible reports whether the item may appear in a search index at now.
// Posts must be published, not soft-deleted and not scheduled for the future.
func (c *ContentItem) IsEligible(now time.Time) bool {
	if c == nil || c.DeletedAt != nil {
		return false
	}
	if c.Type != IndexTypePosts {
		return true
	}
	if c.Status != ContentStatusPublished {
		return false
	}
	if c.PublishedAt != nil && c.PublishedAt.After(now) {
		return false
	}
	return true
}

// Searchable field names
const (
	FieldTitle    = "title"
	FieldExcerpt  = "excerpt"
	FieldContent  = "content"
	FieldCategory = "category"
	FieldTags     = "tags"
)

// SearchableFields lists every field a record can be scored on
func SearchableFields() []string {
	return []string{FieldTitle, FieldExcerpt, FieldContent, FieldCategory, FieldTags}
}

// IsSearchableField reports whether name is a scorable field
func IsSearchableField(name string) bool {
	for _, f := range SearchableFields() {
		if f == name {
			return true
		}
	}
	return false
}

// SearchableRecord is a flattened, denormalized snapshot of an eligible content item
type SearchableRecord struct {
	ID          int64      `json:"id"`
	Type        IndexType  `json:"type"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Content     string     `json:"content,omitempty"` // plain text
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// Phonetic holds space-separated phonetic keys per field name.
	// Present only when phonetic matching was enabled at build time.
	Phonetic map[string]string `json:"phonetic,omitempty"`
}

// FieldText returns the plain text of a named field. Tags are joined by spaces.
func (r *SearchableRecord) FieldText(field string) string {
	switch field {
	case FieldTitle:
		return r.Title
	case FieldExcerpt:
		return r.Excerpt
	case FieldContent:
		return r.Content
	case FieldCategory:
		return r.Category
	case FieldTags:
		return strings.Join(r.Tags, " ")
	}
	return ""
}

// PhoneticFor returns the stored phonetic keys for a field, if any
func (r *SearchableRecord) PhoneticFor(field string) string {
	if r.Phonetic == nil {
		return ""
	}
	return r.Phonetic[field]
}

// HasTag reports whether the record carries tag (case-insensitive)
func (r *SearchableRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// IndexStats describes one cached index for operational tooling
type IndexStats struct {
	Count   int        `json:"count"`
	Cached  bool       `json:"cached"`
	BuiltAt *time.Time `json:"built_at,omitempty"`
}
