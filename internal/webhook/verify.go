package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	HeaderShopifyHMAC      = "X-Shopify-Hmac-Sha256"
	HeaderWooacrySecret    = "X-Wooacry-Secret"
	HeaderWebhookSecret    = "X-Webhook-Secret"
	shippingSecretQueryKey = "secret"
)

// VerifyShopifyHMAC checks the base64 HMAC-SHA256 Shopify sends over the raw body.
func VerifyShopifyHMAC(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func shippingSecret(r *http.Request) string {
	if s := r.Header.Get(HeaderWooacrySecret); s != "" {
		return s
	}
	if s := r.Header.Get(HeaderWebhookSecret); s != "" {
		return s
	}
	return r.URL.Query().Get(shippingSecretQueryKey)
}

func secretMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
