package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/nuansasolution/portal/internal/domain"
	"github.com/nuansasolution/portal/internal/middleware"
	"github.com/nuansasolution/portal/internal/service"
	"golang.org/x/sync/errgroup"
)

// ProfileHandler handles the account pages: profile, entitlement and
// printable invoices.
type ProfileHandler struct {
	backend     service.Backend
	entitlement *service.Entitlement
	invoice     *service.Invoice
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(backend service.Backend, entitlement *service.Entitlement, invoice *service.Invoice) *ProfileHandler {
	return &ProfileHandler{backend: backend, entitlement: entitlement, invoice: invoice}
}

// GetProfile handles GET /v1/me/profile
// Fetches the profile and the entitlement concurrently; the profile page
// shows both.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	var (
		profile *domain.Profile
		access  service.Access
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() error {
		var err error
		profile, err = h.backend.GetProfile(ctx, sess.Token, sess.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		access, err = h.entitlement.Resolve(ctx, sess, sess.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return h.backendError(c, "GetProfile", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":          profile.User,
			"active_order":  profile.ActiveOrder,
			"order_history": profile.OrderHistory,
			"access":        access,
		},
	})
}

// GetAccess handles GET /v1/me/access
// Entitlement boolean for route guards.
func (h *ProfileHandler) GetAccess(c *fiber.Ctx) error {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	access, err := h.entitlement.Resolve(c.UserContext(), sess, sess.UserID)
	if err != nil {
		return h.backendError(c, "GetAccess", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    access,
	})
}

// GetInvoice handles GET /v1/me/orders/:order_id/invoice
// Renders the printable invoice for one of the caller's orders. Orders
// still awaiting payment have no invoice yet and return 409.
func (h *ProfileHandler) GetInvoice(c *fiber.Ctx) error {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}
	orderID := c.Params("order_id")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "order ID is required",
		})
	}

	profile, err := h.backend.GetProfile(c.UserContext(), sess.Token, sess.UserID)
	if err != nil {
		return h.backendError(c, "GetInvoice", err)
	}

	var order *domain.Order
	if profile.ActiveOrder != nil && profile.ActiveOrder.OrderID == orderID {
		order = profile.ActiveOrder
	}
	for _, o := range profile.OrderHistory {
		if o.OrderID == orderID {
			order = o
			break
		}
	}
	if order == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "order not found",
		})
	}
	if order.Status == domain.OrderStatusPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "order is still awaiting payment, no invoice yet",
		})
	}

	doc := h.invoice.Render(order, profile.User)
	html, err := h.invoice.RenderHTML(doc)
	if err != nil {
		log.Printf("[GetInvoice] Error rendering invoice for order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to render invoice",
		})
	}

	c.Set("Content-Type", fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(html)
}

func (h *ProfileHandler) backendError(c *fiber.Ctx, op string, err error) error {
	if errors.Is(err, domain.ErrAuthExpired) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "session expired, please log in again",
			"code":    "AUTH_EXPIRED",
		})
	}
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "profile not found",
		})
	}
	log.Printf("[%s] Backend error: %v", op, err)
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"success": false,
		"error":   "service unavailable, please try again later",
	})
}
