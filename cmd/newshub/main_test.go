package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/spf13/cobra"
)

func newRoot(sub *cobra.Command) *cobra.Command {
	root := &cobra.Command{Use: "newshub", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().StringP("config", "c", "", "")
	root.AddCommand(sub)
	return root
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t, `{"server":{"jwt_secret":"s3cret"},"storage":{"sqlite":{"path":":memory:"}}}`)
	var out bytes.Buffer
	root := newRoot(tokenCMD())
	root.SetOut(&out)
	root.SetArgs([]string{"token", "-c", path, "--subject", "ops", "--ttl", "1h"})
	if err := root.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}
	sub, err := runtime.ParseJWT(strings.TrimSpace(out.String()), []byte("s3cret"))
	if err != nil || sub != "ops" {
		t.Fatalf("minted token invalid: %q %v", sub, err)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	path := writeConfig(t, `{}`)
	root := newRoot(tokenCMD())
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "-c", path})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without jwt secret")
	}
}

func TestTokenCommandHashKey(t *testing.T) {
	var out bytes.Buffer
	root := newRoot(tokenCMD())
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--hash-key", "k"})
	if err := root.Execute(); err != nil {
		t.Fatalf("token --hash-key: %v", err)
	}
	creds := runtime.Credentials{APIKeyHash: strings.TrimSpace(out.String())}
	if _, ok := creds.Authenticate("k", ""); !ok {
		t.Fatalf("printed hash does not match key")
	}
}

func TestMigrateSkipsSQLite(t *testing.T) {
	path := writeConfig(t, `{"storage":{"driver":"sqlite"}}`)
	var out bytes.Buffer
	root := newRoot(migrateCMD())
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "-c", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "nothing to migrate") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
