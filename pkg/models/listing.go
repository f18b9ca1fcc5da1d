package models

const (
	PriceSentinel    = "$-"
	DistanceSentinel = "—"
	UnknownStore     = "Unknown Store"
	PlaceholderImage = "https://images.unsplash.com/photo-1677784514802-33c5e3b6d80c?auto=format&fit=crop&w=800&q=60"
)

const (
	MinRadiusMiles     = 1
	MaxRadiusMiles     = 25
	DefaultRadiusMiles = 5

	MinStoreCount     = 1
	MaxStoreCount     = 10
	DefaultStoreCount = 3
)

// SearchInput is what the user has typed and dialled in so far.
type SearchInput struct {
	ProductName string `json:"product_name" yaml:"product_name"`
	ZipCode     string `json:"zip_code" yaml:"zip_code"`
	RadiusMiles int    `json:"radius_miles" yaml:"radius_miles"`
	StoreCount  int    `json:"store_count" yaml:"store_count"`
}

func DefaultSearchInput() SearchInput {
	return SearchInput{
		RadiusMiles: DefaultRadiusMiles,
		StoreCount:  DefaultStoreCount,
	}
}

// SearchRequest is the body sent to POST /api/v1/search.
type SearchRequest struct {
	ProductName     string `json:"product_name"`
	ZipCode         string `json:"zip_code"`
	MinStoreResults int    `json:"min_store_results"`
	RadiusMiles     int    `json:"radius_miles"`
}

type StoreDetails struct {
	Name          string `json:"store_name"`
	Address       string `json:"store_address"`
	DistanceLabel string `json:"distance_from_zipcode"`
	WebsiteURL    string `json:"website"`
}

type Listing struct {
	ID           int          `json:"id"`
	ProductName  string       `json:"product_name"`
	ProductImage string       `json:"product_image"`
	ProductPrice string       `json:"product_price"`
	UnitQuantity string       `json:"unit_quantity"`
	Store        StoreDetails `json:"store_details"`
}
