package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kunal-ak23/university-tracker-sub000/internal/accounts"
	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
)

type lineResponse struct {
	ID              uuid.UUID       `json:"id"`
	Account         string          `json:"account"`
	EntryType       string          `json:"entry_type"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	TransactionType string          `json:"transaction_type"`
	SourceKind      string          `json:"source_kind"`
	SourceID        uuid.UUID       `json:"source_id"`
	InvoiceID       *uuid.UUID      `json:"invoice_id,omitempty"`
	UniversityID    *uuid.UUID      `json:"university_id,omitempty"`
	OEMID           *uuid.UUID      `json:"oem_id,omitempty"`
	BillingID       *uuid.UUID      `json:"billing_id,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Description     string          `json:"description,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Reversing       bool            `json:"reversing"`
	ReversedLineID  *uuid.UUID      `json:"reversed_line_id,omitempty"`
	RunningBalance  decimal.Decimal `json:"running_balance"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toLineResponse(l ledger.Line) lineResponse {
	return lineResponse{
		ID:              l.ID,
		Account:         string(l.Account),
		EntryType:       string(l.EntryType),
		Amount:          l.Amount,
		TransactionDate: l.TransactionDate,
		TransactionType: string(l.TransactionType),
		SourceKind:      string(l.Source.Kind),
		SourceID:        l.Source.ID,
		InvoiceID:       l.InvoiceID,
		UniversityID:    l.UniversityID,
		OEMID:           l.OEMID,
		BillingID:       l.BillingID,
		ReferenceNumber: l.ReferenceNumber,
		Description:     l.Description,
		Notes:           l.Notes,
		Reversing:       l.Reversing,
		ReversedLineID:  l.ReversedLineID,
		RunningBalance:  l.RunningBalance,
		CreatedAt:       l.CreatedAt,
	}
}

// RegisterLedgerRoutes exposes the read-only ledger query surface.
func RegisterLedgerRoutes(api fiber.Router, store ledger.Store) {
	group := api.Group("/ledger")

	group.Get("/lines", func(c *fiber.Ctx) error {
		filter, err := filterFromQuery(c)
		if err != nil {
			return err
		}

		lines, err := store.Lines(c.UserContext(), filter)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "ledger read failed")
		}

		out := make([]lineResponse, 0, len(lines))
		for _, l := range lines {
			out = append(out, toLineResponse(l))
		}
		return c.JSON(fiber.Map{"lines": out, "count": len(out)})
	})

	group.Get("/balances", func(c *fiber.Ctx) error {
		filter, err := filterFromQuery(c)
		if err != nil {
			return err
		}

		lines, err := store.Lines(c.UserContext(), filter)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "ledger read failed")
		}

		totals := make(map[accounts.Account]decimal.Decimal, len(accounts.All()))
		for _, account := range accounts.All() {
			totals[account] = decimal.Zero
		}
		for _, l := range lines {
			totals[l.Account] = totals[l.Account].Add(l.SignedAmount())
		}

		balances := make(map[string]decimal.Decimal, len(totals))
		for account, total := range totals {
			balances[string(account)] = total
		}
		return c.JSON(fiber.Map{"balances": balances, "line_count": len(lines)})
	})
}

func filterFromQuery(c *fiber.Ctx) (ledger.Filter, error) {
	var filter ledger.Filter

	if v := c.Query("university_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, fiber.NewError(http.StatusBadRequest, "invalid university_id")
		}
		filter.UniversityID = &id
	}
	if v := c.Query("source_kind"); v != "" {
		kind := ledger.SourceKind(v)
		switch kind {
		case ledger.KindPayment, ledger.KindOEMPayment, ledger.KindExpense:
			filter.SourceKind = &kind
		default:
			return filter, fiber.NewError(http.StatusBadRequest, "invalid source_kind")
		}
	}
	if c.QueryBool("unscoped") {
		filter.OnlyUnscoped = true
	}
	return filter, nil
}
