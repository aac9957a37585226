// Package orders exposes operator endpoints that pass through to the Wooacry order APIs.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/wooacry-bridge/internal/address"
	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
	"github.com/joao-fontenele/wooacry-bridge/internal/wooacry"
)

type Partner interface {
	OrderInfo(ctx context.Context, thirdPartyOrderSN string) (*wooacry.Response, error)
	CancelOrder(ctx context.Context, thirdPartyOrderSN string) (*wooacry.Response, error)
	ChangeAddress(ctx context.Context, req wooacry.AddressChangeRequest) (*wooacry.Response, error)
	CustomizeInfo(ctx context.Context, customizeNo string) (*wooacry.Response, error)
}

type Handler struct {
	partner Partner
	logger  *slog.Logger
}

func NewHandler(partner Partner, logger *slog.Logger) *Handler {
	return &Handler{
		partner: partner,
		logger:  logger,
	}
}

type passthroughResponse struct {
	OK                bool            `json:"ok"`
	WooacryHTTPStatus int             `json:"wooacry_http_status"`
	Request           any             `json:"request"`
	Response          json.RawMessage `json:"response"`
}

func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	resp, err := h.partner.OrderInfo(r.Context(), id)
	h.respond(w, r, wooacry.OrderRefRequest{ThirdPartyOrderSN: id}, resp, err)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	resp, err := h.partner.CancelOrder(r.Context(), id)
	if err == nil {
		h.logger.InfoContext(r.Context(), "wooacry cancel requested", "order_id", id, "ok", resp.OK())
	}
	h.respond(w, r, wooacry.OrderRefRequest{ThirdPartyOrderSN: id}, resp, err)
}

type changeAddressRequest struct {
	Address *domain.Address `json:"address"`
}

func (h *Handler) HandleChangeAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req changeAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.Validation("body", "invalid request body"))
		return
	}
	if req.Address == nil {
		h.writeError(w, apperr.Validation("address", "is required"))
		return
	}

	addr, err := address.Normalize(*req.Address)
	if err != nil {
		h.writeError(w, err)
		return
	}

	change := wooacry.AddressChangeRequest{ThirdPartyOrderSN: id, Address: addr}
	resp, err := h.partner.ChangeAddress(r.Context(), change)
	h.respond(w, r, change, resp, err)
}

func (h *Handler) HandleCustomizeInfo(w http.ResponseWriter, r *http.Request) {
	customizeNo := strings.TrimSpace(r.PathValue("customize_no"))
	if customizeNo == "" {
		h.writeError(w, apperr.Validation("customize_no", "is required"))
		return
	}

	resp, err := h.partner.CustomizeInfo(r.Context(), customizeNo)
	h.respond(w, r, wooacry.CustomizeInfoRequest{CustomizeNo: customizeNo}, resp, err)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.writeError(w, apperr.Validation("id", "missing order id"))
		return "", false
	}
	return id, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, request any, resp *wooacry.Response, err error) {
	if err != nil {
		h.logger.ErrorContext(r.Context(), "wooacry passthrough failed", "error", err, "path", r.URL.Path)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, passthroughResponse{
		OK:                resp.OK(),
		WooacryHTTPStatus: resp.HTTPStatus,
		Request:           request,
		Response:          resp.Body,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	body := map[string]any{
		"ok":    false,
		"error": err.Error(),
		"kind":  apperr.Kind(err),
	}

	var protocol *apperr.UpstreamProtocolError
	if errors.As(err, &protocol) {
		body["wooacry_http_status"] = protocol.HTTPStatus
		body["body_preview"] = protocol.BodyPreview
	}

	h.writeJSON(w, apperr.HTTPStatus(err), body)
}
