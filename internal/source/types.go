package source

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/model"
)

// Line types routed by the parser.
const (
	TypeExpense = "expense"
	TypeRetract = "retract"
)

// RawExpense is one "expense" line of an import file.
type RawExpense struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	BudgetID   string          `json:"budget_id,omitempty"`
	Category   string          `json:"category"`
	OwnerID    string          `json:"owner_id,omitempty"`
	BusinessID string          `json:"business_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method,omitempty"`
	At         string          `json:"at,omitempty"`
	Note       string          `json:"note,omitempty"`
}

// Record is a validated import line.
type Record struct {
	Type string
	File string
	Line int

	ID         string
	BudgetID   string
	Category   string
	OwnerID    string
	BusinessID string
	Amount     decimal.Decimal
	Method     model.PaymentMethod
	At         time.Time
	Note       string
}

// DiscoveredFile is a JSONL file found during scanning.
type DiscoveredFile struct {
	Path  string
	Batch string // directory relative to the scan root, "" at the root
	// BudgetID applies to expense lines that name no budget.
	BudgetID string
}
