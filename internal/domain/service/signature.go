package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureVerifier checks the gateway's HMAC-SHA256 signatures. Both the
// checkout callback and the webhook use hex-encoded digests.
type SignatureVerifier struct {
	keySecret     []byte
	webhookSecret []byte
}

func NewSignatureVerifier(keySecret, webhookSecret string) *SignatureVerifier {
	return &SignatureVerifier{
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
	}
}

// VerifyCheckout validates the signature the checkout flow hands back to the
// browser: HMAC(key secret, "orderID|paymentID").
func (v *SignatureVerifier) VerifyCheckout(orderID, paymentID, signature string) bool {
	if len(v.keySecret) == 0 || signature == "" {
		return false
	}
	return equalHex(Sign(v.keySecret, []byte(orderID+"|"+paymentID)), signature)
}

// VerifyWebhook validates a webhook signature over the exact body bytes.
// Without a configured secret nothing verifies.
func (v *SignatureVerifier) VerifyWebhook(body []byte, signature string) bool {
	if !v.WebhookConfigured() || signature == "" {
		return false
	}
	return equalHex(Sign(v.webhookSecret, body), signature)
}

func (v *SignatureVerifier) WebhookConfigured() bool {
	return len(v.webhookSecret) > 0
}

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func equalHex(expected, got string) bool {
	return hmac.Equal([]byte(expected), []byte(got))
}
