package product

// Product is a catalog entry the bot can match cart items against
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"` // e.g. "500 g", "1 L", "pack of 6"
}

// Price is one retailer's current offer for a product. Amounts are kept
// in paise to avoid float arithmetic on money.
type Price struct {
	ProductID  string `json:"product_id"`
	Retailer   string `json:"retailer"`
	PricePaise int64  `json:"price_paise"`
	InStock    bool   `json:"in_stock"`
}

// Suggestion is a catalog candidate for a requested item, with its
// per-retailer prices, presented to the user as a numbered choice
type Suggestion struct {
	Product Product `json:"product"`
	Prices  []Price `json:"prices"`
}

// BestPrice returns the lowest in-stock price, or nil when no retailer
// has the product
func (s Suggestion) BestPrice() *Price {
	var best *Price
	for i := range s.Prices {
		p := &s.Prices[i]
		if !p.InStock {
			continue
		}
		if best == nil || p.PricePaise < best.PricePaise {
			best = p
		}
	}
	return best
}
