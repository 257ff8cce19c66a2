package billing

import "crypto/subtle"

// VerifyHottok compares the token sent by Hotmart with the configured secret.
func VerifyHottok(got, configured string) error {
	if configured == "" {
		return ErrSecretNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(configured)) != 1 {
		return ErrInvalidHottok
	}
	return nil
}
