package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader is the header GitHub uses to deliver the payload HMAC.
const SignatureHeader = "X-Hub-Signature-256"

// EventHeader names the event type of an inbound webhook delivery.
const EventHeader = "X-GitHub-Event"

const signaturePrefix = "sha256="

// Signature verification errors.
var (
	// ErrMissingSignature is returned when no signature header was sent.
	ErrMissingSignature = errors.New("missing signature header")

	// ErrInvalidSignatureFormat is returned when the header does not use the
	// sha256=<hex> format.
	ErrInvalidSignatureFormat = errors.New("invalid signature format, expected 'sha256=<hex digest>'")

	// ErrSignatureMismatch is returned when the digest does not match the payload.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// SignPayload returns the hex-encoded HMAC-SHA256 of payload keyed by secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureFor returns the full header value GitHub would send for payload.
func SignatureFor(payload []byte, secret string) string {
	return signaturePrefix + SignPayload(payload, secret)
}

// VerifySignature recomputes the HMAC-SHA256 of the raw payload and compares
// it against the header digest in constant time.
func VerifySignature(payload []byte, secret, header string) error {
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrInvalidSignatureFormat
	}

	expected := SignPayload(payload, secret)
	if !constantTimeEqual(strings.TrimPrefix(header, signaturePrefix), expected) {
		return ErrSignatureMismatch
	}
	return nil
}

// constantTimeEqual compares two strings without an early exit, so the
// running time is independent of where the inputs first differ. Unequal
// lengths compare false without touching either string's bytes.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
