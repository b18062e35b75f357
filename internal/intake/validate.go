package intake

import (
	"fmt"
	"strings"
	"time"
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors aggregates field-level problems so the caller can surface
// all of them at once instead of failing on the first.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "invalid intake: " + strings.Join(parts, "; ")
}

var validOwners = map[Owner]bool{OwnerPartyA: true, OwnerPartyB: true, OwnerJoint: true}

var validAssetCategories = map[AssetCategory]bool{
	AssetRealEstate: true, AssetVehicle: true, AssetBank: true,
	AssetInvestment: true, AssetRetirement: true, AssetBusiness: true,
	AssetOther: true,
}

var validDebtCategories = map[DebtCategory]bool{
	DebtMortgage: true, DebtStudentLoan: true, DebtCreditCard: true,
	DebtAutoLoan: true, DebtPersonal: true, DebtOther: true,
}

// Validate checks the record before masking may begin. jurisdictionKnown is
// supplied by the clause table so this package stays independent of it.
func Validate(r Record, jurisdictionKnown func(string) bool) error {
	var errs ValidationErrors

	if !looksLikeEmail(r.Email) {
		errs = append(errs, FieldError{"email", "must be a valid email address"})
	}
	if jurisdictionKnown != nil && !jurisdictionKnown(r.Jurisdiction) {
		errs = append(errs, FieldError{"jurisdiction", "unsupported jurisdiction code"})
	}
	if strings.TrimSpace(r.PartyAName) == "" {
		errs = append(errs, FieldError{"party_a_name", "is required"})
	}
	if strings.TrimSpace(r.PartyBName) == "" {
		errs = append(errs, FieldError{"party_b_name", "is required"})
	}
	if _, err := time.Parse("2006-01-02", r.WeddingDate); err != nil {
		errs = append(errs, FieldError{"wedding_date", "must be YYYY-MM-DD"})
	}

	for i, a := range r.Assets {
		prefix := fmt.Sprintf("assets[%d]", i)
		if !validAssetCategories[a.Category] {
			errs = append(errs, FieldError{prefix + ".category", "unknown asset category"})
		}
		if strings.TrimSpace(a.Description) == "" {
			errs = append(errs, FieldError{prefix + ".description", "is required"})
		}
		if a.Value < 0 {
			errs = append(errs, FieldError{prefix + ".value", "must be >= 0"})
		}
		if !validOwners[a.Owner] {
			errs = append(errs, FieldError{prefix + ".owner", `must be "A", "B" or "joint"`})
		}
	}
	for i, d := range r.Debts {
		prefix := fmt.Sprintf("debts[%d]", i)
		if !validDebtCategories[d.Category] {
			errs = append(errs, FieldError{prefix + ".category", "unknown debt category"})
		}
		if strings.TrimSpace(d.Description) == "" {
			errs = append(errs, FieldError{prefix + ".description", "is required"})
		}
		if d.Value < 0 {
			errs = append(errs, FieldError{prefix + ".value", "must be >= 0"})
		}
		if !validOwners[d.Owner] {
			errs = append(errs, FieldError{prefix + ".owner", `must be "A", "B" or "joint"`})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func looksLikeEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(s, " \t\n")
}
