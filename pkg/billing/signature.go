package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// WebhookConfig holds webhook ingress configuration.
type WebhookConfig struct {
	// Secret is the shared key the provider signs payloads with.
	Secret string `env:"BILLING_WEBHOOK_SECRET,required"`
	// MaxBodyBytes caps the accepted payload size.
	MaxBodyBytes int64 `env:"BILLING_WEBHOOK_MAX_BODY" envDefault:"1048576"`
}

// defaultMaxBodyBytes applies when the configuration leaves the cap unset.
const defaultMaxBodyBytes int64 = 1 << 20

// signatureParts is the parsed "ts=...,v1=..." signature header.
type signatureParts struct {
	Timestamp string
	Digest    string
}

// parseSignatureHeader splits the comma-separated key=value signature header.
// Both the timestamp and the v1 digest are required.
func parseSignatureHeader(header string) (signatureParts, error) {
	var parts signatureParts
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			parts.Timestamp = strings.TrimSpace(value)
		case "v1":
			parts.Digest = strings.TrimSpace(value)
		}
	}
	if parts.Timestamp == "" || parts.Digest == "" {
		return signatureParts{}, malformed("signature header is missing ts or v1 component")
	}
	return parts, nil
}

// VerifySignature checks webhook authenticity. It recomputes an HMAC-SHA256
// digest over the provider's canonical manifest string built from the event
// object id, the request id, and the signature timestamp, and compares it
// against the supplied digest in constant time.
//
// Returns ErrMalformedEvent for missing or unparseable inputs and
// ErrSignatureInvalid on digest mismatch; a mismatched event must not be
// processed.
func VerifySignature(secret, dataID, requestID, signatureHeader string) error {
	if secret == "" {
		return ErrMissingWebhookSecret
	}
	if signatureHeader == "" || requestID == "" {
		return malformed("signature or request id header is missing")
	}

	parts, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return err
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, parts.Timestamp)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(manifest))
	computed := hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(parts.Digest)) {
		return ErrSignatureInvalid
	}
	return nil
}

// SignManifest produces the signature header value for the given manifest
// inputs. The inverse of VerifySignature, used by tests and replay tooling.
func SignManifest(secret, dataID, requestID, timestamp string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, timestamp)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(manifest))
	return fmt.Sprintf("ts=%s,v1=%s", timestamp, hex.EncodeToString(h.Sum(nil)))
}
