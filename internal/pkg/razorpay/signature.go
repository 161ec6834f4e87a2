package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignPayment computes the checkout signature for (orderID, paymentID):
// HMAC-SHA256 over "orderID|paymentID" keyed with the merchant secret.
func SignPayment(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks a checkout receipt signature in constant
// time. The secret never leaves the server; a client-reported "success" is
// meaningless until this check passes.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignPayment(orderID, paymentID, secret)
	received := strings.ToLower(strings.TrimSpace(signature))
	return hmac.Equal([]byte(expected), []byte(received))
}
