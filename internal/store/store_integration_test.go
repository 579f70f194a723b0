package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/mohammad-safakhou/newshub/internal/store"
	"github.com/mohammad-safakhou/newshub/models"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("newshub"),
		tcPostgres.WithUsername("newshub"),
		tcPostgres.WithPassword("newshub"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://newshub:newshub@%s:%s/newshub?sslmode=disable", host, port.Port())

	var st *store.Store
	deadline := time.Now().Add(30 * time.Second)
	for {
		st, err = store.NewWithDSN(ctx, dsn)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("NewWithDSN: %v", err)
	}
	defer st.Close()

	schema, err := os.ReadFile("../../migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := st.DB.ExecContext(ctx, string(schema)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	item := models.NewNewsItem("Police Operation in DF", "https://example.com/police", "GDELT", "Operação policial", now, now)
	for i, want := range []int{1, 0} {
		n, err := st.SaveItems(ctx, []models.NewsItem{item})
		if err != nil {
			t.Fatalf("SaveItems #%d: %v", i, err)
		}
		if n != want {
			t.Fatalf("SaveItems #%d inserted %d, want %d", i, n, want)
		}
	}

	got, err := st.Search(ctx, "POLICE", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != item.ID {
		t.Fatalf("unexpected search result: %+v", got)
	}

	if err := st.InsertLog(ctx, now, "INFO", "integration"); err != nil {
		t.Fatalf("InsertLog: %v", err)
	}
	logs, err := st.ListLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Message != "integration" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}
