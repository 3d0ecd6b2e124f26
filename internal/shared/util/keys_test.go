package util

import (
	"strings"
	"testing"
)

func TestOwnerKey(t *testing.T) {
	got := OwnerKey("guest:abc")
	if got != OwnerKey(" guest:abc ") {
		t.Fatalf("expected stable key, got %s", got)
	}
	if len(got) != 32 {
		t.Fatalf("expected 32 hex characters, got %d", len(got))
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("key contains non-hex character: %c", ch)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "planos casa.pdf", want: "planos_casa.pdf"},
		{in: "C:\\docs\\plano.pdf", want: "plano.pdf"},
		{in: "dir/sub/plano.pdf", want: "plano.pdf"},
		{in: "../secret.pdf", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileNameTruncates(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("a", 300) + ".pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if len(got) != maxFileNameLen || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("unexpected truncation: %d %q", len(got), got[len(got)-8:])
	}
}

func TestPlanKey(t *testing.T) {
	key, err := PlanKey("user-1", "a1", "plano.pdf")
	if err != nil {
		t.Fatalf("PlanKey: %v", err)
	}
	want := "plans/" + OwnerKey("user-1") + "/a1/plano.pdf"
	if key != want {
		t.Fatalf("PlanKey = %q, want %q", key, want)
	}
	if _, err := PlanKey("user-1", "", "plano.pdf"); err == nil {
		t.Fatalf("expected error for empty analysis id")
	}
}
