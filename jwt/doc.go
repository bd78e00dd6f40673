// Package jwt issues and verifies the signed session tokens handed out by
// the reference auth server.
package jwt
