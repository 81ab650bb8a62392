package domain

import "github.com/shopspring/decimal"

// PropertyStatus is the market state of a property.
type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "AVAILABLE"
	PropertyOwned     PropertyStatus = "OWNED"
)

// PropertyProduct is a property listed on (or bought from) the market.
type PropertyProduct struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Description   string          `json:"description"`
	Rooms         int             `json:"rooms"`
	Sqft2         int             `json:"sqft2"`
	ImageURL      string          `json:"imageUrl"`
	Status        PropertyStatus  `json:"status"`
	OwnerClientID *int64          `json:"ownerClientId,omitempty"`
}

// IsListed reports whether the property is still on the market.
func (p PropertyProduct) IsListed() bool {
	return p.Status != PropertyOwned
}

// ProductDraft is the editable part of a market property.
type ProductDraft struct {
	Name        string          `validate:"required"`
	Price       decimal.Decimal `validate:"gt=0"`
	Description string          `validate:"required"`
	Rooms       int             `validate:"gt=0"`
	Sqft2       int             `validate:"gt=0"`
	ImageURL    string
	// Status is only honoured by updates; creates always list the property.
	Status PropertyStatus `validate:"omitempty,oneof=AVAILABLE OWNED"`
}
