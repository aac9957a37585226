// Package webhook serves the inbound Shopify and Wooacry webhooks.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
	"github.com/joao-fontenele/wooacry-bridge/internal/fulfillment"
	"github.com/joao-fontenele/wooacry-bridge/internal/pipeline"
)

const maxBodySize = 5 << 20

type OrderProcessor interface {
	Process(ctx context.Context, order domain.InboundOrder) (pipeline.Result, error)
}

type ShipmentSyncer interface {
	Sync(ctx context.Context, notice domain.ShipmentNotice) (fulfillment.Action, error)
}

type Config struct {
	// ShopifySecret enables HMAC verification of the orders/create webhook when set.
	ShopifySecret string
	// ShippingSecret enables the shared-secret check on the shipping webhook when set.
	ShippingSecret string
}

type Handler struct {
	cfg       Config
	processor OrderProcessor
	syncer    ShipmentSyncer
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewHandler(cfg Config, processor OrderProcessor, syncer ShipmentSyncer, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		processor: processor,
		syncer:    syncer,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (h *Handler) HandleOrderCreated(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeFailure(w, fmt.Errorf("read body: %w", err))
		return
	}

	if h.cfg.ShopifySecret != "" && !VerifyShopifyHMAC(body, r.Header.Get(HeaderShopifyHMAC), h.cfg.ShopifySecret) {
		h.logger.WarnContext(r.Context(), "shopify webhook signature mismatch")
		h.writeFailure(w, apperr.ErrUnauthorized)
		return
	}

	var order domain.InboundOrder
	if err := json.Unmarshal(body, &order); err != nil {
		h.writeFailure(w, apperr.Validation("body", "invalid JSON order"))
		return
	}

	res, err := h.processor.Process(r.Context(), order)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "order pipeline failed", "error", err, "kind", apperr.Kind(err))
		h.writeFailure(w, err)
		return
	}

	switch res.Outcome {
	case pipeline.OutcomeSkipped:
		h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "skipped": true})
	case pipeline.OutcomeAlreadyProcessed:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"ok":               true,
			"already_created":  true,
			"wooacry_order_sn": res.OrderSN,
		})
	default:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"ok":                      true,
			"wooacry_order_sn":        res.OrderSN,
			"wooacry_create_response": res.CreateResponse,
		})
	}
}

type shippingAck struct {
	Data    []any  `json:"data"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandleShipping acknowledges every authenticated notice. Sync failures are logged only,
// since Wooacry does not act on a non-success answer.
func (h *Handler) HandleShipping(w http.ResponseWriter, r *http.Request) {
	if h.cfg.ShippingSecret != "" && !secretMatches(shippingSecret(r), h.cfg.ShippingSecret) {
		h.logger.WarnContext(r.Context(), "shipping webhook secret mismatch")
		h.writeJSON(w, http.StatusUnauthorized, map[string]any{"code": http.StatusUnauthorized, "message": "unauthorized"})
		return
	}

	ack := shippingAck{Data: []any{}, Code: 0, Message: "success"}

	var notice domain.ShipmentNotice
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&notice); err != nil {
		h.logger.WarnContext(r.Context(), "invalid shipping notice", "error", err)
		h.writeJSON(w, http.StatusOK, ack)
		return
	}

	if err := h.validate.Struct(notice); err != nil {
		h.logger.WarnContext(r.Context(), "shipping notice rejected", "error", err)
		h.writeJSON(w, http.StatusOK, ack)
		return
	}

	action, err := h.syncer.Sync(r.Context(), notice)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "fulfillment sync failed",
			"error", err,
			"third_party_order_sn", notice.ThirdPartyOrderSN.String(),
		)
	} else {
		h.logger.InfoContext(r.Context(), "shipping notice applied",
			"action", action,
			"third_party_order_sn", notice.ThirdPartyOrderSN.String(),
		)
	}

	h.writeJSON(w, http.StatusOK, ack)
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	body := map[string]any{
		"ok":    false,
		"error": err.Error(),
		"kind":  apperr.Kind(err),
	}

	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) {
		body["step"] = stepErr.Step
	}
	if details := errorDetails(err); details != nil {
		body["details"] = details
	}

	h.writeJSON(w, apperr.HTTPStatus(err), body)
}

func errorDetails(err error) map[string]any {
	var (
		validation *apperr.ValidationError
		protocol   *apperr.UpstreamProtocolError
		business   *apperr.UpstreamBusinessError
	)

	switch {
	case errors.As(err, &validation):
		return map[string]any{"field": validation.Field, "reason": validation.Reason}
	case errors.As(err, &protocol):
		return map[string]any{
			"endpoint":    protocol.Endpoint,
			"http_status": protocol.HTTPStatus,
			"body":        protocol.BodyPreview,
		}
	case errors.As(err, &business):
		return map[string]any{
			"endpoint":    business.Endpoint,
			"http_status": business.HTTPStatus,
			"code":        business.Code,
			"message":     business.Message,
			"raw":         business.Raw,
		}
	default:
		return nil
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
