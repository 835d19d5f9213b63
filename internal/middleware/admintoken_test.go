package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func adminApp(token string) *fiber.App {
	app := fiber.New()
	app.Use(AdminToken(token))
	app.Post("/admin", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestAdminTokenAcceptsMatchingBearer(t *testing.T) {
	app := adminApp("s3cret")

	req := httptest.NewRequest(fiber.MethodPost, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer s3cret")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}

func TestAdminTokenRejectsWrongToken(t *testing.T) {
	app := adminApp("s3cret")

	req := httptest.NewRequest(fiber.MethodPost, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer nope")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestAdminTokenRejectsMissingHeader(t *testing.T) {
	app := adminApp("s3cret")

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/admin", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestAdminTokenLockedWhenUnconfigured(t *testing.T) {
	app := adminApp("")

	req := httptest.NewRequest(fiber.MethodPost, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer anything")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected %d got %d", fiber.StatusForbidden, resp.StatusCode)
	}
}
