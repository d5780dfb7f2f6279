package normalisers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-fuzzy/internal/core/domain"
)

func TestPlaintext(t *testing.T) {
	b := NewRecordBuilder(false)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text untouched", "Laravel Testing", "Laravel Testing"},
		{"inline tags", "Hello <strong>World</strong>", "Hello World"},
		{"block tags separate words", "<p>First</p><p>Second</p>", "First Second"},
		{"entities decoded", "Fish&nbsp;&amp;&nbsp;Chips", "Fish & Chips"},
		{"line breaks", "one<br>two<br/>three", "one two three"},
		{"attributes dropped", `<a href="https://example.com" class="x">link</a>`, "link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Plaintext(tt.in))
		})
	}
}

func TestBuild(t *testing.T) {
	published := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	item := &domain.ContentItem{
		ID:          7,
		Type:        domain.IndexTypePosts,
		Title:       "  Laravel Testing ",
		Excerpt:     "<em>Short</em> intro",
		Content:     "<h1>Heading</h1><p>Body text</p>",
		Category:    " Tutorials ",
		Tags:        []string{"php", " ", "testing "},
		Author:      "jane",
		Status:      domain.ContentStatusPublished,
		PublishedAt: &published,
	}

	rec := NewRecordBuilder(false).Build(item)

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, domain.IndexTypePosts, rec.Type)
	assert.Equal(t, "Laravel Testing", rec.Title)
	assert.Equal(t, "Short intro", rec.Excerpt)
	assert.Equal(t, "Heading Body text", rec.Content)
	assert.Equal(t, "Tutorials", rec.Category)
	assert.Equal(t, []string{"php", "testing"}, rec.Tags)
	assert.Equal(t, "jane", rec.Author)
	require.NotNil(t, rec.PublishedAt)
	assert.True(t, rec.PublishedAt.Equal(published))
	assert.Nil(t, rec.Phonetic)

	// the record owns its timestamp
	published = published.Add(time.Hour)
	assert.False(t, rec.PublishedAt.Equal(published))
}

func TestBuild_Phonetic(t *testing.T) {
	item := &domain.ContentItem{
		ID:    1,
		Type:  domain.IndexTypeTags,
		Title: "John Smith",
	}

	rec := NewRecordBuilder(true).Build(item)

	require.NotNil(t, rec.Phonetic)
	assert.Equal(t, "JN SM0", rec.Phonetic[domain.FieldTitle])
	_, hasContent := rec.Phonetic[domain.FieldContent]
	assert.False(t, hasContent, "empty fields carry no keys")
}
