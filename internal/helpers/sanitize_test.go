package helpers

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "removes tags and scripts", in: `<p>Hello <strong>world</strong><script>alert('x')</script></p>`, want: "Hello world"},
		{name: "decodes entities", in: `PCDF &amp; PMDF fazem operação &quot;Escudo&quot;`, want: `PCDF & PMDF fazem operação "Escudo"`},
		{name: "google news description", in: `<a href="https://g1.globo.com/x">Polícia prende suspeito</a>&nbsp;&nbsp;<font color="#6f6f6f">g1</font>`, want: "Polícia prende suspeito g1"},
		{name: "plain text untouched", in: "  Roubo   em\nTaguatinga ", want: "Roubo em Taguatinga"},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Fatalf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  Segurança   PÚBLICA\t DF "); got != "segurança pública df" {
		t.Fatalf("unexpected normalised query %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("operação policial", 8); got != "operação…" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("curto", 10); got != "curto" {
		t.Fatalf("short strings must be kept, got %q", got)
	}
}
