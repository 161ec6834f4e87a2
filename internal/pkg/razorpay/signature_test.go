package razorpay

import "testing"

func TestVerifyPaymentSignature_Valid(t *testing.T) {
	sig := SignPayment("order_123", "pay_456", "secret")
	if !VerifyPaymentSignature("order_123", "pay_456", sig, "secret") {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyPaymentSignature_Tampered(t *testing.T) {
	sig := SignPayment("order_123", "pay_456", "secret")
	if VerifyPaymentSignature("order_123", "pay_999", sig, "secret") {
		t.Fatal("expected tampered payment id to fail verification")
	}
	if VerifyPaymentSignature("order_123", "pay_456", sig, "other-secret") {
		t.Fatal("expected wrong secret to fail verification")
	}
}

func TestVerifyPaymentSignature_EmptyInputs(t *testing.T) {
	if VerifyPaymentSignature("order_123", "pay_456", "", "secret") {
		t.Fatal("expected empty signature to fail")
	}
	if VerifyPaymentSignature("order_123", "pay_456", "deadbeef", "") {
		t.Fatal("expected empty secret to fail")
	}
}

func TestVerifyPaymentSignature_CaseAndWhitespace(t *testing.T) {
	sig := SignPayment("order_123", "pay_456", "secret")
	upper := " " + stringsToUpper(sig) + " "
	if !VerifyPaymentSignature("order_123", "pay_456", upper, "secret") {
		t.Fatal("expected verification to tolerate case and surrounding whitespace")
	}
}

func stringsToUpper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 32
		}
		out[i] = c
	}
	return string(out)
}
