package retailer

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/cartwala/cartwala/pkg/logger"
)

// supported lists the quick-commerce retailers users can connect.
// Names are matched lowercase.
var supported = []string{"zepto", "blinkit", "bigbasket", "instamart"}

// Supported returns the retailer names users can connect
func Supported() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether name is a known retailer
func IsSupported(name string) bool {
	name = Normalize(name)
	for _, r := range supported {
		if r == name {
			return true
		}
	}
	return false
}

// Normalize lowercases and trims a retailer name
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// checkoutLinks points users at each retailer's cart to pay
var checkoutLinks = map[string]string{
	"zepto":     "https://www.zeptonow.com/cart",
	"blinkit":   "https://blinkit.com/cart",
	"bigbasket": "https://www.bigbasket.com/basket/",
	"instamart": "https://www.swiggy.com/instamart/cart",
}

// CheckoutLink returns the cart URL for a retailer, or "" when unknown
func CheckoutLink(name string) string {
	return checkoutLinks[Normalize(name)]
}

// OTPGateway asks a retailer to send a login code to a phone number.
// Production implementations drive the retailer's own login endpoint; the
// code parameter is what the bot generated for audit purposes.
type OTPGateway interface {
	RequestOTP(ctx context.Context, retailer, phone, code string) error
}

// LoggingOTPGateway records OTP dispatches without contacting any
// retailer. Used until per-retailer login automation lands.
type LoggingOTPGateway struct {
	logger logger.Logger
}

// NewLoggingOTPGateway creates the log-only gateway
func NewLoggingOTPGateway(log logger.Logger) *LoggingOTPGateway {
	return &LoggingOTPGateway{logger: log}
}

// RequestOTP logs the dispatch and succeeds
func (g *LoggingOTPGateway) RequestOTP(ctx context.Context, retailer, phone, code string) error {
	g.logger.Info("OTP requested", "retailer", retailer, "phone", phone, "code", code)
	return nil
}

// GenerateOTP returns a uniformly random 6-digit code
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n), nil
}
