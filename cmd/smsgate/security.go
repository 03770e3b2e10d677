package main

import (
	"fmt"
	"net/http"

	"smsgate/internal/security"
)

const signatureHeader = "X-Webhook-Signature"

// verifyWebhook authenticates an inbound webhook when a secret is configured.
// Either an HMAC signature header over the raw body or a matching "secret"
// field is accepted; the header is checked first when present.
func verifyWebhook(r *http.Request, body []byte, presentedSecret, secret string) error {
	if secret == "" {
		return nil
	}

	if header := r.Header.Get(signatureHeader); header != "" {
		if err := security.VerifySignature(body, header, secret); err != nil {
			return fmt.Errorf("webhook signature: %w", err)
		}
		return nil
	}

	if presentedSecret == "" {
		return fmt.Errorf("missing webhook secret")
	}
	if !security.SecretsEqual(presentedSecret, secret) {
		return fmt.Errorf("webhook secret mismatch")
	}
	return nil
}
