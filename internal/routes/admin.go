package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
)

type rebuildRequest struct {
	DryRun       bool `json:"dry_run"`
	TruncateOnly bool `json:"truncate_only"`
}

type scopedRequest struct {
	DryRun       bool    `json:"dry_run"`
	UniversityID *string `json:"university_id"`
}

// RegisterAdminRoutes exposes the maintenance operations. The caller wires
// these behind the admin token middleware.
func RegisterAdminRoutes(r fiber.Router, d Deps) {
	r.Post("/rebuild", func(c *fiber.Ctx) error {
		var req rebuildRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(http.StatusBadRequest, "invalid request body")
			}
		}

		rebuilder := ledger.NewRebuilder(d.Sources, d.Store, d.Notifier, d.Logger)
		counts, err := rebuilder.Rebuild(c.UserContext(), ledger.RebuildOptions{
			DryRun:       req.DryRun,
			TruncateOnly: req.TruncateOnly,
		})
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{
			"dry_run":           req.DryRun,
			"truncated":         counts.Truncated,
			"payment_lines":     counts.PaymentLines,
			"oem_payment_lines": counts.OEMPaymentLines,
			"expense_lines":     counts.ExpenseLines,
			"skipped_sources":   counts.SkippedSources,
			"total_lines":       counts.TotalLines(),
		})
	})

	r.Post("/recalculate", func(c *fiber.Ctx) error {
		var req scopedRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(http.StatusBadRequest, "invalid request body")
			}
		}
		universityID, err := parseOptionalID(req.UniversityID)
		if err != nil {
			return err
		}

		updated, err := d.Service.Recalculator().Recalculate(c.UserContext(), universityID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{"updated_lines": updated})
	})

	r.Post("/fix-missing", func(c *fiber.Ctx) error {
		var req scopedRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(http.StatusBadRequest, "invalid request body")
			}
		}
		universityID, err := parseOptionalID(req.UniversityID)
		if err != nil {
			return err
		}

		repairer := ledger.NewRepairer(d.Sources, d.Store, d.Notifier, d.Logger)
		counts, err := repairer.FixMissing(c.UserContext(), ledger.RepairOptions{
			DryRun:       req.DryRun,
			UniversityID: universityID,
		})
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{
			"dry_run":  req.DryRun,
			"checked":  counts.Checked,
			"missing":  counts.Missing,
			"created":  counts.Created,
			"reversed": counts.Reversed,
			"skipped":  counts.Skipped,
			"errors":   counts.Errors,
		})
	})
}

func parseOptionalID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "invalid university_id")
	}
	return &id, nil
}
