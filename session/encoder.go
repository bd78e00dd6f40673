package session

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

const keyNameContext = "goSession 2026 entry names v1"

// Logical entry names. They never reach a Backend in clear form.
const (
	fieldToken       = "auth_token"
	fieldUserID      = "user_id"
	fieldEmail       = "user_email"
	fieldDisplayName = "user_name"
	fieldLoggedIn    = "is_logged_in"
	fieldTimestamp   = "session_timestamp"
)

var identityFields = []string{fieldToken, fieldUserID, fieldEmail, fieldDisplayName}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

// sealer turns logical entries into backend keys and ciphertext.
type sealer struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
	nameKey   [32]byte
}

func newSealer(identity *age.X25519Identity) (*sealer, error) {
	if identity == nil {
		return nil, errors.New("nil identity")
	}
	s := &sealer{
		identity:  identity,
		recipient: identity.Recipient(),
	}
	blake3.DeriveKey(keyNameContext, []byte(identity.String()), s.nameKey[:])
	return s, nil
}

// keyName maps a logical field to its backend key.
func (s *sealer) keyName(field string) string {
	hasher, err := blake3.NewKeyed(s.nameKey[:])
	if err != nil {
		panic("session: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write([]byte(field))
	return hex.EncodeToString(hasher.Sum(nil)[:16])
}

func (s *sealer) seal(value any) ([]byte, error) {
	plain, err := encMode.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding entry: %w", err)
	}

	var out bytes.Buffer
	w, err := age.Encrypt(&out, s.recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return nil, fmt.Errorf("writing entry to age encryptor: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return out.Bytes(), nil
}

func (s *sealer) open(data []byte, target any) error {
	r, err := age.Decrypt(bytes.NewReader(data), s.identity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := decMode.Unmarshal(plain, target); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
