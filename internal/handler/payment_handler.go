package handler

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/nuansasolution/portal/internal/domain"
	"github.com/nuansasolution/portal/internal/infrastructure/snap"
	"github.com/nuansasolution/portal/internal/middleware"
	"github.com/nuansasolution/portal/internal/service"
)

// PaymentHandler handles the widget handoff and the payment lifecycle
// endpoints backing the pending screen.
type PaymentHandler struct {
	orchestrator *service.Orchestrator
	gateway      snap.Gateway
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(orchestrator *service.Orchestrator, gateway snap.Gateway) *PaymentHandler {
	return &PaymentHandler{orchestrator: orchestrator, gateway: gateway}
}

// OpenRequest represents the request body for opening a widget session.
type OpenRequest struct {
	SnapToken string `json:"snap_token"`
}

// Open handles POST /v1/payments/open/:order_id
// Registers a widget session for the order so the browser's outcome report
// can be routed back to the orchestrator. The session outlives this
// request; it ends when the widget resolves or is superseded.
func (h *PaymentHandler) Open(c *fiber.Ctx) error {
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

	var req OpenRequest
	if err := c.BodyParser(&req); err != nil || req.SnapToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "snap_token is required",
		})
	}

	// The widget session must outlive this HTTP exchange.
	widgetCtx := context.WithoutCancel(c.UserContext())
	if _, err := h.orchestrator.OpenGateway(widgetCtx, sess, orderID, req.SnapToken); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// OutcomeRequest represents the browser-reported widget outcome.
type OutcomeRequest struct {
	SnapToken         string `json:"snap_token"`
	Result            string `json:"result"` // success, pending, error, closed
	TransactionStatus string `json:"transaction_status,omitempty"`
	StatusMessage     string `json:"status_message,omitempty"`
}

var outcomeKinds = map[string]snap.OutcomeKind{
	"success": snap.OutcomeSuccess,
	"pending": snap.OutcomePending,
	"error":   snap.OutcomeError,
	"closed":  snap.OutcomeClosed,
}

// Outcome handles POST /v1/payments/outcome/:order_id
// Resolves the widget session with the outcome the browser observed. Only
// meaningful with the callback gateway; the mock gateway resolves itself.
func (h *PaymentHandler) Outcome(c *fiber.Ctx) error {
	if _, ok := middleware.SessionFrom(c); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	var req OutcomeRequest
	if err := c.BodyParser(&req); err != nil || req.SnapToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "snap_token is required",
		})
	}
	kind, ok := outcomeKinds[req.Result]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "result must be success, pending, error or closed",
		})
	}

	callback, ok := h.gateway.(*snap.CallbackGateway)
	if !ok {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"success": false,
			"error":   "gateway does not accept browser-reported outcomes",
		})
	}

	if !callback.Resolve(req.SnapToken, snap.Outcome{
		Kind:              kind,
		TransactionStatus: req.TransactionStatus,
		StatusMessage:     req.StatusMessage,
	}) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "no open widget session for this token",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// GetStatus handles GET /v1/payments/status/:order_id
// One-shot authoritative status check behind the pending screen's refresh.
func (h *PaymentHandler) GetStatus(c *fiber.Ctx) error {
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

	update, err := h.orchestrator.CheckStatus(c.UserContext(), sess, orderID)
	if err != nil {
		return h.backendError(c, "GetStatus", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id":           update.OrderID,
			"transaction_status": update.TransactionStatus,
			"state":              update.State,
			"terminal":           update.State.Terminal(),
		},
	})
}

// Resume handles POST /v1/payments/resume/:order_id
// Issues a fresh gateway token for a pending order and opens a widget
// session for it. The previous token is superseded.
func (h *PaymentHandler) Resume(c *fiber.Ctx) error {
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

	ctx := c.UserContext()
	token, err := h.orchestrator.Resume(ctx, sess, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrResumeNotAllowed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "only orders awaiting payment can be resumed",
			})
		}
		return h.backendError(c, "Resume", err)
	}

	widgetCtx := context.WithoutCancel(ctx)
	if _, err := h.orchestrator.OpenGateway(widgetCtx, sess, orderID, token); err != nil {
		log.Printf("[Resume] Error opening widget session for order %s: %v", orderID, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"order_id": orderID, "snap_token": token},
	})
}

// CancelRequest carries the explicit confirmation the cancel flow requires.
type CancelRequest struct {
	Confirm bool `json:"confirm"`
}

// Cancel handles POST /v1/payments/cancel/:order_id
// Cancels a pending order. The body must carry confirm=true; the UI asks
// the user before this endpoint is ever hit, and the flag keeps a stray
// request from destroying a resumable order.
func (h *PaymentHandler) Cancel(c *fiber.Ctx) error {
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

	var req CancelRequest
	if err := c.BodyParser(&req); err != nil || !req.Confirm {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "cancellation requires confirm=true",
		})
	}

	if err := h.orchestrator.Cancel(c.UserContext(), sess, orderID); err != nil {
		if errors.Is(err, domain.ErrCancelNotAllowed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "only orders awaiting payment can be cancelled",
			})
		}
		return h.backendError(c, "Cancel", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *PaymentHandler) backendError(c *fiber.Ctx, op string, err error) error {
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
			"error":   "order not found",
		})
	}
	log.Printf("[%s] Backend error: %v", op, err)
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"success": false,
		"error":   "payment service unavailable, please try again later",
	})
}
