package wooacry

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

const (
	pathPreorder      = "/api/reseller/open/order/create/pre"
	pathCreateOrder   = "/api/reseller/open/order/create"
	pathOrderInfo     = "/api/reseller/open/order/info"
	pathOrderCancel   = "/api/reseller/open/order/cancel"
	pathAddressChange = "/api/reseller/open/order/address/change"
	pathCustomizeInfo = "/api/reseller/open/customize/info"
)

// Field order of the request structs is the order the partner documents; the body
// is signed as marshalled, so it must not be reordered after signing.

type PreorderRequest struct {
	ThirdPartyUser string                     `json:"third_party_user"`
	Skus           []domain.CustomizationItem `json:"skus"`
	Address        domain.NormalizedAddress   `json:"address"`
}

type PreorderResult struct {
	ShippingMethods []domain.ShippingQuote `json:"shipping_methods"`
}

type CreateOrderRequest struct {
	ThirdPartyOrderSN        string                     `json:"third_party_order_sn"`
	ThirdPartyOrderCreatedAt int64                      `json:"third_party_order_created_at"`
	ThirdPartyUser           string                     `json:"third_party_user"`
	ShippingMethodID         string                     `json:"shipping_method_id"`
	Skus                     []domain.CustomizationItem `json:"skus"`
	Address                  domain.NormalizedAddress   `json:"address"`
}

type CreateOrderResult struct {
	OrderSN string `json:"-"`
	// Response is the full partner envelope, kept for callers that echo it.
	Response json.RawMessage `json:"-"`
}

type OrderRefRequest struct {
	ThirdPartyOrderSN string `json:"third_party_order_sn"`
}

type AddressChangeRequest struct {
	ThirdPartyOrderSN string                   `json:"third_party_order_sn"`
	Address           domain.NormalizedAddress `json:"address"`
}

type CustomizeInfoRequest struct {
	CustomizeNo string `json:"customize_no"`
}

// Response is a parsed partner envelope. Code is nil when the partner omitted it.
type Response struct {
	HTTPStatus int
	Code       *int
	Message    string
	Data       json.RawMessage
	Body       json.RawMessage
}

func (r *Response) OK() bool {
	return r != nil && r.Code != nil && *r.Code == 0
}

type envelope struct {
	Code    json.RawMessage   `json:"code"`
	Message domain.FlexString `json:"message"`
	Msg     domain.FlexString `json:"msg"`
	Data    json.RawMessage   `json:"data"`
}

// parseCode accepts 0, "0" and null. Anything that is not an integer is reported as absent.
func parseCode(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil
		}
	}

	v, err := strconv.Atoi(text)
	if err != nil {
		return nil
	}
	return &v
}
