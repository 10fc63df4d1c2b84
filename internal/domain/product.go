package domain

type AvailabilityStatus string

const (
	StatusAvailable    AvailabilityStatus = "Available"
	StatusLimitedStock AvailabilityStatus = "Limited Stock"
	StatusOutOfStock   AvailabilityStatus = "Out of Stock"
)

func (s AvailabilityStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusLimitedStock, StatusOutOfStock:
		return true
	}
	return false
}

// Product is an immutable rental catalog record.
type Product struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Category           string             `json:"category"`
	Brand              string             `json:"brand"`
	Description        string             `json:"description"`
	PricePerMonth      float64            `json:"price_per_month"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status"`
	StockCount         int                `json:"stock_count"`
	Features           []string           `json:"features"`
	Rating             float64            `json:"rating"`
}
