package pii

import "testing"

func specMap() *Map {
	m := NewMap()
	m.Names["PARTY_A_9K2L5M"] = "Jennifer Martinez"
	m.Names["PARTY_B_4X8N2P"] = "Michael Chen"
	m.Values["VALUE_8H1J4T"] = 850000
	m.Descriptions["DESC_3Q7W1Z"] = "Primary residence"
	m.Dates["DATE_6F9C3R"] = "2026-09-12"
	return m
}

func TestUnmaskSampleText(t *testing.T) {
	text := "PARTY_A_9K2L5M agrees to retain VALUE_8H1J4T for DESC_3Q7W1Z."
	out, report := Unmask(text, specMap())
	want := "Jennifer Martinez agrees to retain 850000 for Primary residence."
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
	if report.Resolved != 3 || report.Unresolved != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestUnmaskReplacesAllOccurrences(t *testing.T) {
	text := "PARTY_A_9K2L5M waives. PARTY_A_9K2L5M retains. PARTY_B_4X8N2P agrees."
	out, report := Unmask(text, specMap())
	want := "Jennifer Martinez waives. Jennifer Martinez retains. Michael Chen agrees."
	if out != want {
		t.Fatalf("got %q", out)
	}
	if report.Resolved != 3 {
		t.Fatalf("expected 3 resolved occurrences, got %d", report.Resolved)
	}
}

func TestUnmaskIdempotentPassthrough(t *testing.T) {
	text := "This agreement contains no placeholders at all."
	out, report := Unmask(text, specMap())
	if out != text {
		t.Fatalf("token-free text must pass through unchanged, got %q", out)
	}
	if report.Resolved != 0 || report.Unresolved != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestUnmaskUnknownTokenLeftVerbatim(t *testing.T) {
	text := "PARTY_A_9K2L5M agrees with DESC_ZZZZZZ going forward."
	out, report := Unmask(text, specMap())
	want := "Jennifer Martinez agrees with DESC_ZZZZZZ going forward."
	if out != want {
		t.Fatalf("got %q", out)
	}
	if report.Unresolved != 1 {
		t.Fatalf("expected unresolved count 1, got %d", report.Unresolved)
	}
	if len(report.UnresolvedTokens) != 1 || report.UnresolvedTokens[0] != "DESC_ZZZZZZ" {
		t.Fatalf("unexpected unresolved tokens: %v", report.UnresolvedTokens)
	}
}

func TestUnmaskPartialResolutionCounts(t *testing.T) {
	text := "VALUE_8H1J4T then VALUE_MISSING then VALUE_MISSING again, plus DATE_6F9C3R."
	out, report := Unmask(text, specMap())
	if report.Resolved != 2 {
		t.Fatalf("expected 2 resolved, got %d", report.Resolved)
	}
	if report.Unresolved != 2 {
		t.Fatalf("expected 2 unresolved occurrences, got %d", report.Unresolved)
	}
	if len(report.UnresolvedTokens) != 1 || report.UnresolvedTokens[0] != "VALUE_MISSING" {
		t.Fatalf("unexpected unresolved tokens: %v", report.UnresolvedTokens)
	}
	if out == text {
		t.Fatal("known tokens must still be replaced")
	}
}

func TestUnmaskValueContainingTokenShapedText(t *testing.T) {
	m := specMap()
	m.Descriptions["DESC_5V2B8K"] = "Shares recorded as VALUE_LEGACY1 in the 2019 ledger"

	text := "The asset DESC_5V2B8K remains separate property."
	out, report := Unmask(text, m)
	want := "The asset Shares recorded as VALUE_LEGACY1 in the 2019 ledger remains separate property."
	if out != want {
		t.Fatalf("got %q", out)
	}
	if report.Resolved != 1 {
		t.Fatalf("expected 1 resolved, got %d", report.Resolved)
	}
	// Token-shaped text inside an original value is not generation drift.
	if report.Unresolved != 0 || report.UnresolvedTokens != nil {
		t.Fatalf("unexpected drift report: %+v", report)
	}
}

func TestUnmaskNilMap(t *testing.T) {
	text := "DESC_3Q7W1Z stays put."
	out, report := Unmask(text, nil)
	if out != text {
		t.Fatalf("nil map must not modify text, got %q", out)
	}
	if report.Unresolved != 1 {
		t.Fatalf("expected unresolved count 1, got %d", report.Unresolved)
	}
}
