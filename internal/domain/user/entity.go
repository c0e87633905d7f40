package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyWaNumber = errors.New("whatsapp number cannot be empty")
	ErrNotFound      = errors.New("user not found")
)

// User is a WhatsApp contact known to the bot
type User struct {
	ID               string    `json:"id"`
	WaNumber         string    `json:"wa_number"` // WhatsApp number, digits only
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	AddressConfirmed bool      `json:"address_confirmed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewUser creates a user for a WhatsApp number
func NewUser(waNumber, name string) (*User, error) {
	waNumber = strings.TrimSpace(waNumber)
	if waNumber == "" {
		return nil, ErrEmptyWaNumber
	}

	now := time.Now()
	return &User{
		ID:        uuid.New().String(),
		WaNumber:  waNumber,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetAddress stores a new delivery address pending confirmation
func (u *User) SetAddress(address string) {
	u.Address = strings.TrimSpace(address)
	u.AddressConfirmed = false
	u.UpdatedAt = time.Now()
}

// ConfirmAddress marks the stored address as confirmed by the user
func (u *User) ConfirmAddress() {
	u.AddressConfirmed = true
	u.UpdatedAt = time.Now()
}
