package handler

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nuansasolution/portal/internal/domain"
	"github.com/nuansasolution/portal/internal/middleware"
	"github.com/nuansasolution/portal/internal/service"
	"github.com/oklog/ulid/v2"
)

// CheckoutHandler handles catalog browsing and the quote/pay flow.
type CheckoutHandler struct {
	pricing      *service.Pricing
	orchestrator *service.Orchestrator
	quotes       domain.QuoteStore
	quoteTTL     time.Duration
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(pricing *service.Pricing, orchestrator *service.Orchestrator, quotes domain.QuoteStore, quoteTTL time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		pricing:      pricing,
		orchestrator: orchestrator,
		quotes:       quotes,
		quoteTTL:     quoteTTL,
	}
}

// PackageResponse represents a subscription package for the frontend.
type PackageResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MonthlyPrice int64    `json:"monthly_price"`
	Features     []string `json:"features,omitempty"`
	Badge        string   `json:"badge,omitempty"`
}

// ListPackages handles GET /v1/packages
// Returns the subscription catalog with the available duration tiers.
func (h *CheckoutHandler) ListPackages(c *fiber.Ctx) error {
	var packages []PackageResponse
	for _, pkg := range h.pricing.Packages() {
		packages = append(packages, PackageResponse{
			ID:           pkg.ID,
			Name:         pkg.Name,
			MonthlyPrice: pkg.MonthlyPrice,
			Features:     pkg.Features,
			Badge:        pkg.Badge,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"packages":  packages,
			"durations": domain.DurationTiers(),
		},
	})
}

// QuoteRequest represents the request body for pricing a selection.
type QuoteRequest struct {
	PackageID      string `json:"package_id"`
	DurationMonths int    `json:"duration_months"`
}

// Quote handles POST /v1/checkout/quote
// Prices a package/duration selection. Unauthenticated callers get the quote
// stashed under a single-use handoff key they carry across the login redirect.
func (h *CheckoutHandler) Quote(c *fiber.Ctx) error {
	var req QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}
	if req.PackageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "package_id is required",
		})
	}

	quote, err := h.pricing.QuoteByID(req.PackageID, req.DurationMonths)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "package not found",
			})
		}
		if errors.Is(err, domain.ErrInvalidDuration) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "duration_months must be 1, 3, 6 or 12",
			})
		}
		log.Printf("[Quote] Error pricing selection: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to price selection",
		})
	}

	// Authenticated callers proceed straight to pay; anonymous ones get a
	// handoff key so the selection survives the login redirect.
	if _, authed := middleware.SessionFrom(c); authed {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"quote": quote},
		})
	}

	key := ulid.Make().String()
	if err := h.quotes.Put(c.UserContext(), key, quote, h.quoteTTL); err != nil {
		log.Printf("[Quote] Error stashing quote: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to stash quote",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"quote":      quote,
			"quote_key":  key,
			"expires_in": int(h.quoteTTL.Seconds()),
		},
	})
}

// PayRequest represents the request body for creating an order. Exactly one
// of quote_key (handoff from an anonymous quote) or the package selection
// must be provided.
type PayRequest struct {
	QuoteKey       string `json:"quote_key"`
	PackageID      string `json:"package_id"`
	DurationMonths int    `json:"duration_months"`
	PaymentMethod  string `json:"payment_method"` // va_bca, qris
}

// Pay handles POST /v1/checkout/pay
// Creates the backend order for the quoted amount and returns the gateway
// token for the payment widget.
func (h *CheckoutHandler) Pay(c *fiber.Ctx) error {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	var req PayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	validMethods := map[string]bool{"va_bca": true, "qris": true}
	if !validMethods[req.PaymentMethod] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid payment_method, must be va_bca or qris",
		})
	}

	ctx := c.UserContext()

	var quote domain.Quote
	var err error
	if req.QuoteKey != "" {
		quote, err = h.quotes.Take(ctx, req.QuoteKey)
		if errors.Is(err, domain.ErrQuoteConsumed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "quote already used or expired, please price the selection again",
			})
		}
		if err != nil {
			log.Printf("[Pay] Error taking stashed quote: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "failed to retrieve stashed quote",
			})
		}
	} else {
		quote, err = h.pricing.QuoteByID(req.PackageID, req.DurationMonths)
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "package not found",
			})
		}
		if errors.Is(err, domain.ErrInvalidDuration) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "duration_months must be 1, 3, 6 or 12",
			})
		}
		if err != nil {
			log.Printf("[Pay] Error pricing selection: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "failed to price selection",
			})
		}
	}

	result, err := h.orchestrator.CreateOrder(ctx, sess, quote, req.PaymentMethod)
	if err != nil {
		var creationErr *domain.OrderCreationError
		switch {
		case errors.Is(err, domain.ErrAuthExpired):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "session expired, please log in again",
				"code":    "AUTH_EXPIRED",
			})
		case errors.As(err, &creationErr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"error":   creationErr.Reason,
			})
		}
		log.Printf("[Pay] Error creating order: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   "payment service unavailable, please try again later",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id":   result.OrderID,
			"snap_token": result.SnapToken,
			"quote":      result.Quote,
		},
	})
}
