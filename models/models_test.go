package models

import (
	"testing"
	"time"
)

func TestNewNewsItemDefaults(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	item := NewNewsItem("  Operação no DF ", " https://G1.globo.com/df/noticia.html?utm_source=rss ", "GDELT", "", time.Time{}, now)

	if item.URL != "https://g1.globo.com/df/noticia.html" {
		t.Fatalf("unexpected canonical url %q", item.URL)
	}
	if item.Title != "Operação no DF" {
		t.Fatalf("title not trimmed: %q", item.Title)
	}
	if !item.PublishedAt.Equal(now) {
		t.Fatalf("expected ingestion time fallback, got %v", item.PublishedAt)
	}
	if item.Language != DefaultLanguage {
		t.Fatalf("expected default language, got %q", item.Language)
	}
	again := NewNewsItem("other title", "https://g1.globo.com/df/noticia.html", "DuckDuckGo", "x", now, now)
	if again.ID != item.ID {
		t.Fatalf("expected same fingerprint for equivalent urls")
	}
}

func TestParsePublished(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		raw    string
		layout string
		want   time.Time
	}{
		{name: "gdelt layout", raw: "20240430T101500Z", layout: "20060102T150405Z", want: time.Date(2024, 4, 30, 10, 15, 0, 0, time.UTC)},
		{name: "rfc3339", raw: "2024-04-29T08:00:00Z", layout: time.RFC3339, want: time.Date(2024, 4, 29, 8, 0, 0, 0, time.UTC)},
		{name: "garbage falls back", raw: "yesterday", layout: time.RFC3339, want: now},
		{name: "empty falls back", raw: "", layout: time.RFC3339, want: now},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePublished(tt.raw, tt.layout, now)
			if !got.Equal(tt.want) {
				t.Fatalf("ParsePublished(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDedupeKeepsFirst(t *testing.T) {
	t.Parallel()
	in := []NewsItem{{ID: "a", Title: "first"}, {ID: "b"}, {ID: "a", Title: "second"}}
	out := Dedupe(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if out[0].Title != "first" {
		t.Fatalf("expected first occurrence to win, got %q", out[0].Title)
	}
}

func TestConversationAppendDoesNotAlias(t *testing.T) {
	t.Parallel()
	base := Conversation{{Role: RoleSystem, Content: "sys"}}
	a := base.Append(ConversationTurn{Role: RoleUser, Content: "a"})
	b := base.Append(ConversationTurn{Role: RoleUser, Content: "b"})
	if len(base) != 1 {
		t.Fatalf("base mutated: %d turns", len(base))
	}
	if a[1].Content != "a" || b[1].Content != "b" {
		t.Fatalf("appends aliased each other: %+v %+v", a, b)
	}
}
