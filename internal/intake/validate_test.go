package intake

import (
	"errors"
	"strings"
	"testing"
)

func validRecord() Record {
	return Record{
		Email:        "couple@example.com",
		Jurisdiction: "CA",
		PartyAName:   "Jennifer Martinez",
		PartyBName:   "Michael Chen",
		WeddingDate:  "2026-09-12",
		Assets: []Asset{
			{Category: AssetRealEstate, Description: "Primary residence", Value: 850000, Owner: OwnerPartyA},
		},
		Debts: []Debt{
			{Category: DebtStudentLoan, Description: "Graduate school loans", Value: 45000, Owner: OwnerPartyB},
		},
	}
}

func allKnown(string) bool { return true }

func TestValidateAccepts(t *testing.T) {
	if err := Validate(validRecord(), allKnown); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	r := validRecord()
	r.Email = "not-an-email"
	r.PartyAName = "  "
	r.WeddingDate = "September 12"
	r.Assets[0].Value = -1
	r.Debts[0].Owner = Owner("C")

	err := Validate(r, allKnown)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 5 {
		t.Fatalf("expected 5 field errors, got %d: %v", len(verrs), verrs)
	}
	fields := make(map[string]bool)
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	for _, want := range []string{"email", "party_a_name", "wedding_date", "assets[0].value", "debts[0].owner"} {
		if !fields[want] {
			t.Errorf("missing field error %q in %v", want, verrs)
		}
	}
	if !strings.Contains(err.Error(), "wedding_date") {
		t.Errorf("error string should name the field: %s", err.Error())
	}
}

func TestValidateUnknownJurisdiction(t *testing.T) {
	r := validRecord()
	r.Jurisdiction = "ZZ"
	err := Validate(r, func(code string) bool { return code == "CA" })
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Field != "jurisdiction" {
		t.Fatalf("expected single jurisdiction error, got %v", err)
	}
}

func TestValidateUnknownCategories(t *testing.T) {
	r := validRecord()
	r.Assets[0].Category = AssetCategory("yacht")
	r.Debts[0].Category = DebtCategory("gambling")
	err := Validate(r, allKnown)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 2 {
		t.Fatalf("expected 2 category errors, got %v", err)
	}
}

func TestLooksLikeEmail(t *testing.T) {
	cases := map[string]bool{
		"a@b.co":        true,
		" a@b.co ":      true,
		"a@b":           false,
		"@b.co":         false,
		"a@":            false,
		"a b@c.co":      false,
		"":              false,
		"plainaddress":  false,
		"two@@dots.com": true, // tolerated; deliverability is not our concern
	}
	for in, want := range cases {
		if got := looksLikeEmail(in); got != want {
			t.Errorf("looksLikeEmail(%q) = %v, want %v", in, got, want)
		}
	}
}
