package intake

import (
	"errors"
	"time"
)

// Owner tags which party an asset or debt belongs to.
type Owner string

const (
	OwnerPartyA Owner = "A"
	OwnerPartyB Owner = "B"
	OwnerJoint  Owner = "joint"
)

// AssetCategory is a fixed asset classification. Categories carry no PII and
// are forwarded to the drafting provider as-is so it can reason about
// community-property treatment.
type AssetCategory string

const (
	AssetRealEstate AssetCategory = "real_estate"
	AssetVehicle    AssetCategory = "vehicle"
	AssetBank       AssetCategory = "bank_account"
	AssetInvestment AssetCategory = "investment"
	AssetRetirement AssetCategory = "retirement"
	AssetBusiness   AssetCategory = "business"
	AssetOther      AssetCategory = "other"
)

// DebtCategory is a fixed debt classification.
type DebtCategory string

const (
	DebtMortgage    DebtCategory = "mortgage"
	DebtStudentLoan DebtCategory = "student_loan"
	DebtCreditCard  DebtCategory = "credit_card"
	DebtAutoLoan    DebtCategory = "auto_loan"
	DebtPersonal    DebtCategory = "personal_loan"
	DebtOther       DebtCategory = "other"
)

// Asset is one asset entry. Identity is positional within the record.
type Asset struct {
	Category    AssetCategory `json:"category"`
	Description string        `json:"description"`
	Value       int64         `json:"value"` // whole currency units, non-negative
	Owner       Owner         `json:"owner"`
}

// Debt is one debt entry.
type Debt struct {
	Category    DebtCategory `json:"category"`
	Description string       `json:"description"`
	Value       int64        `json:"value"`
	Owner       Owner        `json:"owner"`
}

// Record is the user-submitted intake. It is owned by the submitting user and
// becomes immutable once a generation attempt starts masking it.
type Record struct {
	ID           string `json:"id"`
	OwnerUserID  string `json:"owner_user_id"`
	Email        string `json:"email"`
	Jurisdiction string `json:"jurisdiction"`

	PartyAName  string `json:"party_a_name"`
	PartyBName  string `json:"party_b_name"`
	WeddingDate string `json:"wedding_date"` // YYYY-MM-DD

	Assets []Asset `json:"assets"`
	Debts  []Debt  `json:"debts"`

	SeparateProperty     bool   `json:"separate_property"`
	WaiveAlimony         bool   `json:"waive_alimony"`
	AdditionalProvisions string `json:"additional_provisions,omitempty"`

	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound = errors.New("intake not found")
	ErrLocked   = errors.New("intake is locked by a generation attempt")
)
