package server

import (
	"strings"
	"sync"

	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/transport"
)

// Account is a server-side user record.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
}

// Directory is an in-memory account table keyed by lower-cased email.
type Directory struct {
	mu      sync.RWMutex
	byEmail map[string]Account
}

func NewDirectory() *Directory {
	return &Directory{byEmail: make(map[string]Account)}
}

// Put adds or replaces a.
func (d *Directory) Put(a Account) {
	d.mu.Lock()
	d.byEmail[normalizeEmail(a.Email)] = a
	d.mu.Unlock()
}

// Lookup returns the account registered under email.
func (d *Directory) Lookup(email string) (Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byEmail[normalizeEmail(email)]
	return a, ok
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byEmail)
}

// DefaultAccounts seeds a Directory with the demo accounts, each hashed
// by h.
func DefaultAccounts(h *password.Argon2) (*Directory, error) {
	d := NewDirectory()
	for _, demo := range transport.DemoAccounts() {
		hash, err := h.Hash(demo.Password)
		if err != nil {
			return nil, err
		}
		d.Put(Account{
			ID:           demo.ID,
			Email:        demo.Email,
			Name:         demo.Name,
			PasswordHash: hash,
		})
	}
	return d, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
