package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newshub/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSaveItemsIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	item := models.NewNewsItem("Police Operation in DF", "https://example.com/police-operation", "GDELT", "", now, now)

	n, err := st.SaveItems(ctx, []models.NewsItem{item})
	if err != nil {
		t.Fatalf("SaveItems: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted, got %d", n)
	}
	n, err = st.SaveItems(ctx, []models.NewsItem{item})
	if err != nil {
		t.Fatalf("SaveItems second: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 inserted on re-ingest, got %d", n)
	}
	total, err := st.CountItems(ctx)
	if err != nil {
		t.Fatalf("CountItems: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected exactly one row, got %d", total)
	}
}

func TestSaveItemsFirstWriteWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := models.NewNewsItem("original", "https://example.com/a", "GDELT", "", now, now)
	second := models.NewNewsItem("rewritten", " https://EXAMPLE.com/a#frag ", "DuckDuckGo", "", now, now)

	if _, err := st.SaveItems(ctx, []models.NewsItem{first, second}); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}
	got, err := st.GetItem(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Title != "original" || got.Source != "GDELT" {
		t.Fatalf("stored item was overwritten: %+v", got)
	}
	if _, err := st.GetItem(ctx, "missing"); !errors.Is(err, models.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestSaveItemsContinuesPastFailures(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()
	good := models.NewNewsItem("ok", "https://example.com/ok", "GDELT", "", now, now)
	bad := models.NewsItem{Title: "no id"}

	n, err := st.SaveItems(context.Background(), []models.NewsItem{bad, good})
	if n != 1 {
		t.Fatalf("expected good item inserted, got %d", n)
	}
	if !errors.Is(err, ErrEmptyFingerprint) {
		t.Fatalf("expected ErrEmptyFingerprint in joined error, got %v", err)
	}
}

func TestSearchCaseInsensitiveAndOrdered(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []models.NewsItem{
		models.NewNewsItem("Assalto em Ceilandia", "https://example.com/1", "GDELT", "", base, base),
		models.NewNewsItem("Outro tema", "https://example.com/2", "GDELT", "policia registra ASSALTO", base.Add(2*time.Hour), base),
		models.NewNewsItem("Clima no DF", "https://example.com/3", "GDELT", "chuva", base.Add(time.Hour), base),
		models.NewNewsItem("Taxa de 100% de assalto_x", "https://example.com/4", "GDELT", "", base.Add(-time.Hour), base),
	}
	if _, err := st.SaveItems(ctx, items); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}

	got, err := st.Search(ctx, "assalto", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	if got[0].URL != "https://example.com/2" || got[1].URL != "https://example.com/1" {
		t.Fatalf("unexpected order: %s, %s", got[0].URL, got[1].URL)
	}

	literal, err := st.Search(ctx, "100%", 10)
	if err != nil {
		t.Fatalf("Search literal: %v", err)
	}
	if len(literal) != 1 || literal[0].URL != "https://example.com/4" {
		t.Fatalf("expected wildcard to match literally, got %+v", literal)
	}

	none, err := st.Search(ctx, "inexistente", 10)
	if err != nil {
		t.Fatalf("Search none: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestSearchFoldsAccentedCase(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []models.NewsItem{
		models.NewNewsItem("Operação policial no DF", "https://example.com/op", "GDELT", "", base, base),
		models.NewNewsItem("Clima no DF", "https://example.com/clima", "GDELT", "SEGURANÇA reforçada", base.Add(time.Hour), base),
	}
	if _, err := st.SaveItems(ctx, items); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}

	tests := []struct {
		query string
		want  string
	}{
		{query: "operação", want: "https://example.com/op"},
		{query: "Operação", want: "https://example.com/op"},
		{query: "OPERAÇÃO", want: "https://example.com/op"},
		{query: "segurança", want: "https://example.com/clima"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := st.Search(ctx, tt.query, 10)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(got) != 1 || got[0].URL != tt.want {
				t.Fatalf("Search(%q) = %+v, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestRecentLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var items []models.NewsItem
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		items = append(items, models.NewNewsItem("t", "https://example.com/r/"+string(rune('a'+i)), "GDELT", "", at, at))
	}
	if _, err := st.SaveItems(ctx, items); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}
	got, err := st.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if !got[0].PublishedAt.Equal(base.Add(4 * time.Hour)) {
		t.Fatalf("expected newest first, got %v", got[0].PublishedAt)
	}
}

func TestLogsAppendAndList(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	for _, msg := range []string{"first", "second", "third"} {
		if err := st.InsertLog(ctx, time.Now(), "INFO", msg); err != nil {
			t.Fatalf("InsertLog: %v", err)
		}
	}
	entries, err := st.ListLogs(ctx, 2)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "third" || entries[0].ID <= entries[1].ID {
		t.Fatalf("expected newest first with increasing ids, got %+v", entries)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(context.Background(), "mysql", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
