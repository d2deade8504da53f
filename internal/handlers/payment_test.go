package handlers

import (
	"encoding/hex"
	"testing"
)

func TestComputeRazorpaySignatureDeterministic(t *testing.T) {
	a := computeRazorpaySignature("secret", "order_abc", "pay_def")
	b := computeRazorpaySignature("secret", "order_abc", "pay_def")
	if a != b {
		t.Fatalf("signature not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Fatalf("signature is not hex: %v", err)
	}
}

func TestComputeRazorpaySignatureVariesWithInputs(t *testing.T) {
	base := computeRazorpaySignature("secret", "order_abc", "pay_def")
	if computeRazorpaySignature("other", "order_abc", "pay_def") == base {
		t.Fatal("secret must affect the signature")
	}
	if computeRazorpaySignature("secret", "order_abd", "pay_def") == base {
		t.Fatal("order id must affect the signature")
	}
	if computeRazorpaySignature("secret", "order_abc", "pay_deg") == base {
		t.Fatal("payment id must affect the signature")
	}
	// The pipe separator must keep field boundaries unambiguous.
	if computeRazorpaySignature("secret", "order_abcpay", "_def") == base {
		t.Fatal("field concatenation without the separator must not collide")
	}
}

func TestVerifyRazorpaySignature(t *testing.T) {
	sig := computeRazorpaySignature("secret", "order_abc", "pay_def")
	if !verifyRazorpaySignature("secret", "order_abc", "pay_def", sig) {
		t.Fatal("valid signature rejected")
	}
	if verifyRazorpaySignature("secret", "order_abc", "pay_def", "") {
		t.Fatal("blank signature accepted")
	}
	if verifyRazorpaySignature("secret", "order_abc", "pay_def", sig[:63]) {
		t.Fatal("truncated signature accepted")
	}
}

func TestVerifyRazorpaySignatureRejectsEveryBitFlip(t *testing.T) {
	sig := computeRazorpaySignature("secret", "order_abc", "pay_def")
	raw, err := hex.DecodeString(sig)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			tampered := make([]byte, len(raw))
			copy(tampered, raw)
			tampered[i] ^= 1 << bit
			if verifyRazorpaySignature("secret", "order_abc", "pay_def", hex.EncodeToString(tampered)) {
				t.Fatalf("tampered signature accepted (byte %d bit %d)", i, bit)
			}
		}
	}
}
