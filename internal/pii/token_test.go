package pii

import (
	"strings"
	"testing"
)

func TestNewTokenFormat(t *testing.T) {
	cases := map[Category]string{
		CategoryName:        "PARTY_",
		CategoryValue:       "VALUE_",
		CategoryDescription: "DESC_",
		CategoryDate:        "DATE_",
	}
	for cat, prefix := range cases {
		tok, err := NewToken(cat)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(tok, prefix) {
			t.Fatalf("token %q missing prefix %q", tok, prefix)
		}
		suffix := strings.TrimPrefix(tok, prefix)
		if len(suffix) != suffixLen {
			t.Fatalf("token %q suffix length %d, want %d", tok, len(suffix), suffixLen)
		}
		for _, r := range suffix {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("token %q contains %q outside alphabet", tok, r)
			}
		}
	}
}

func TestAppendSymbolsRejectsBiasedBytes(t *testing.T) {
	// 252..255 would wrap onto A..D and skew the draw; they must be skipped.
	got := appendSymbols(nil, []byte{252, 253, 254, 255}, suffixLen)
	if len(got) != 0 {
		t.Fatalf("bytes above %d must be rejected, got %q", rejectAbove-1, got)
	}

	// Accepted bytes map modulo the alphabet.
	got = appendSymbols(nil, []byte{0, 36, 72, 251}, suffixLen)
	if string(got) != "AAA9" {
		t.Fatalf("unexpected symbols %q", got)
	}

	// Never appends past the requested length.
	got = appendSymbols([]byte("ABCDE"), []byte{0, 1, 2}, suffixLen)
	if string(got) != "ABCDEA" {
		t.Fatalf("unexpected fill %q", got)
	}
}

func TestNewTokenUnknownCategory(t *testing.T) {
	if _, err := NewToken(Category("emails")); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestBuilderRegeneratesOnCollision(t *testing.T) {
	b := newBuilder()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		tok, err := b.token(CategoryName)
		if err != nil {
			t.Fatal(err)
		}
		if seen[tok] {
			t.Fatalf("builder returned duplicate token %s", tok)
		}
		seen[tok] = true
	}
}
