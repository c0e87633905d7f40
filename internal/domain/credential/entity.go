package credential

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyLoginID = errors.New("login id cannot be empty")
	ErrNotFound     = errors.New("credential not found")
)

// LoginType tags how the user authenticates against a retailer
type LoginType string

const (
	LoginTypePhone LoginType = "phone"
	LoginTypeEmail LoginType = "email"
)

// Credential is a user's stored login for one retailer. Secret holds the
// sealed password for email logins and is empty for phone/OTP logins.
type Credential struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Retailer  string    `json:"retailer"`
	LoginID   string    `json:"login_id"`
	LoginType LoginType `json:"login_type"`
	Secret    []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a credential for a user and retailer
func New(userID, retailer, loginID string, loginType LoginType, secret []byte) (*Credential, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" {
		return nil, ErrEmptyLoginID
	}

	now := time.Now()
	return &Credential{
		ID:        uuid.New().String(),
		UserID:    userID,
		Retailer:  strings.ToLower(strings.TrimSpace(retailer)),
		LoginID:   loginID,
		LoginType: loginType,
		Secret:    secret,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
