package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
)

// GenerateIdentity returns a fresh age X25519 identity.
func GenerateIdentity() (*age.X25519Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}
	return identity, nil
}

// LoadOrCreateIdentity reads the age identity at path, creating a new one
// (mode 0600, parent directories 0700) when the file does not exist. The
// file uses the age-keygen layout, so it can also be inspected with the
// age tooling.
func LoadOrCreateIdentity(path string) (*age.X25519Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return parseIdentityFile(path, data)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading identity %s: %w", path, err)
	}

	identity, err := GenerateIdentity()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating identity directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# created: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "# public key: %s\n", identity.Recipient().String())
	fmt.Fprintf(&buf, "%s\n", identity.String())
	if err := writeFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("writing identity %s: %w", path, err)
	}
	return identity, nil
}

func parseIdentityFile(path string, data []byte) (*age.X25519Identity, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity %s: %w", path, err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("identity %s: no X25519 identity found", path)
}
