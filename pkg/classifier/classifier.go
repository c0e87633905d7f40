package classifier

import (
	"context"
)

// Tag is the intent label returned for a freeform message
type Tag string

const (
	TagOrder               Tag = "order"
	TagAddItem             Tag = "add_item"
	TagRemoveItem          Tag = "remove_item"
	TagShowPrices          Tag = "show_prices"
	TagShowCart            Tag = "show_cart"
	TagAddressConfirmation Tag = "address_confirmation"
	TagAuthentication      Tag = "authentication"
	TagCredentialInput     Tag = "credential_input"
	TagProductSelection    Tag = "product_selection"
	TagRetailerSelection   Tag = "retailer_selection"
	TagUnknown             Tag = "unknown"
)

// Item is a grocery item extracted from a message
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity,omitempty"`
}

// Intent is the structured reading of one message. Confidence is
// informational at this layer; any confidence-based fallback is the
// classifier's own concern.
type Intent struct {
	Tag        Tag            `json:"intent"`
	Items      []Item         `json:"items,omitempty"`
	Address    string         `json:"address,omitempty"`
	Confirmed  *bool          `json:"confirmed,omitempty"`
	Retailer   string         `json:"retailer,omitempty"`
	Choices    map[string]int `json:"choices,omitempty"`
	Confidence float64        `json:"confidence"`
}

// Classifier infers a structured intent from freeform text. It is only
// consulted when no pattern rule or active flow claims the message.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Intent, error)
}

// knownTags guards against the model inventing labels
var knownTags = map[Tag]bool{
	TagOrder:               true,
	TagAddItem:             true,
	TagRemoveItem:          true,
	TagShowPrices:          true,
	TagShowCart:            true,
	TagAddressConfirmation: true,
	TagAuthentication:      true,
	TagCredentialInput:     true,
	TagProductSelection:    true,
	TagRetailerSelection:   true,
	TagUnknown:             true,
}

// Normalize coerces an unknown or empty tag to TagUnknown
func Normalize(t Tag) Tag {
	if !knownTags[t] {
		return TagUnknown
	}
	return t
}
