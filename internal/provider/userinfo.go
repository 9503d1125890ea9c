package provider

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"golang.org/x/oauth2"
)

// SubjectFromToken extracts the user identity from the token bundle's ID
// token, preferring the email claim over the bare subject. The ID token is
// parsed without signature verification: it arrived over TLS directly from
// the token endpoint, not from the browser.
func SubjectFromToken(tok *oauth2.Token) (string, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", fmt.Errorf("token bundle has no id_token")
	}

	idToken, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse id_token: %w", err)
	}

	var email string
	if err := idToken.Get("email", &email); err == nil && email != "" {
		return email, nil
	}
	if sub, ok := idToken.Subject(); ok && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("id_token has neither email nor subject")
}
