package normalize

import (
	"encoding/json"
	"testing"

	"budgetbite/pkg/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestListings_StoresAlternateKeys(t *testing.T) {
	payload := decode(t, `{"stores":[{"name":"ALDI","price":2,"distance_miles":1.2}]}`)

	got := Listings(payload, "Banana")

	want := []models.Listing{{
		ID:           1,
		ProductName:  "Banana",
		ProductImage: models.PlaceholderImage,
		ProductPrice: "$2.00",
		Store: models.StoreDetails{
			Name:          "ALDI",
			DistanceLabel: "1.2 miles",
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Listings() mismatch (-want +got):\n%s", diff)
	}
}

func TestListings_CanonicalShape(t *testing.T) {
	payload := decode(t, `{
		"stores_list": [{
			"id": 991,
			"product_name": "Organic Milk",
			"product_image": "https://img.example/milk.jpg",
			"product_price": "3.50",
			"unit_quantity": " 1 gallon ",
			"store_details": {
				"store_name": "Walmart",
				"store_address": "456 Oak Ave, Somerset, NJ",
				"distance_from_zipcode": "2.5 miles",
				"website": "www.walmart.com"
			}
		}],
		"stores": [{"name": "ignored"}]
	}`)

	got := Listings(payload, "Milk")

	want := []models.Listing{{
		ID:           1,
		ProductName:  "Organic Milk",
		ProductImage: "https://img.example/milk.jpg",
		ProductPrice: "$3.50",
		UnitQuantity: "1 gallon",
		Store: models.StoreDetails{
			Name:          "Walmart",
			Address:       "456 Oak Ave, Somerset, NJ",
			DistanceLabel: "2.5 miles",
			WebsiteURL:    "https://www.walmart.com",
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Listings() mismatch (-want +got):\n%s", diff)
	}
}

func TestListings_IDsArePositions(t *testing.T) {
	payload := decode(t, `{"stores":[{"id":"x9"},{"id":42},{}]}`)
	got := Listings(payload, "Eggs")
	require.Len(t, got, 3)
	for i, l := range got {
		assert.Equal(t, i+1, l.ID)
	}
}

func TestListings_Total(t *testing.T) {
	payloads := []string{
		`{}`,
		`null`,
		`[]`,
		`"stores"`,
		`42`,
		`{"stores": null}`,
		`{"stores": "ALDI"}`,
		`{"stores_list": {"a": 1}}`,
		`{"stores": [null, 1, "x", [], {}]}`,
		`{"stores": [{"product_name": null, "price": null, "store_details": null, "distance": null, "website": null}]}`,
		`{"stores": [{"product_name": 12, "price": true, "store_details": "oops", "unit": {"v": 1}, "website": ["a"]}]}`,
	}
	for _, raw := range payloads {
		t.Run(raw, func(t *testing.T) {
			payload := decode(t, raw)
			assert.NotPanics(t, func() {
				for _, l := range Listings(payload, "Bread") {
					assert.NotEmpty(t, l.ProductName)
					assert.NotEmpty(t, l.ProductImage)
					assert.Regexp(t, `^\$`, l.ProductPrice)
					assert.NotEmpty(t, l.Store.Name)
					assert.NotEmpty(t, l.Store.DistanceLabel)
				}
			})
		})
	}
}

func TestListings_Fallbacks(t *testing.T) {
	payload := decode(t, `{"stores": [null, {"store_details": {}}]}`)
	got := Listings(payload, "Bread")
	require.Len(t, got, 2)
	for _, l := range got {
		assert.Equal(t, "Bread", l.ProductName)
		assert.Equal(t, models.PlaceholderImage, l.ProductImage)
		assert.Equal(t, models.PriceSentinel, l.ProductPrice)
		assert.Equal(t, models.UnknownStore, l.Store.Name)
		assert.Equal(t, models.DistanceSentinel, l.Store.DistanceLabel)
		assert.Empty(t, l.Store.WebsiteURL)
		assert.Empty(t, l.Store.Address)
		assert.Empty(t, l.UnitQuantity)
	}
}

func TestListings_EmptyStoresListWins(t *testing.T) {
	payload := decode(t, `{"stores_list": [], "stores": [{"name": "ALDI"}]}`)
	assert.Empty(t, Listings(payload, "Bread"))
}

func TestListing_PriceFallsThroughUnusableKeys(t *testing.T) {
	payload := decode(t, `{"stores": [
		{"product_price": "", "price": 1.5},
		{"product_price": null, "current_price": "$4"},
		{"price": "   "}
	]}`)
	got := Listings(payload, "Bread")
	require.Len(t, got, 3)
	assert.Equal(t, "$1.50", got[0].ProductPrice)
	assert.Equal(t, "$4", got[1].ProductPrice)
	assert.Equal(t, models.PriceSentinel, got[2].ProductPrice)
}

func TestListing_StoreDetailsTakePrecedence(t *testing.T) {
	payload := decode(t, `{"stores": [{
		"store": "Flat Store",
		"address": "Flat Address",
		"distance": 9,
		"website": "http://flat.example",
		"store_details": {"store_name": "Nested", "store_address": "Nested Address", "distance_from_zipcode": 0.4, "website": "nested.example"}
	}]}`)
	got := Listings(payload, "Bread")
	require.Len(t, got, 1)
	assert.Equal(t, models.StoreDetails{
		Name:          "Nested",
		Address:       "Nested Address",
		DistanceLabel: "0.4 miles",
		WebsiteURL:    "https://nested.example",
	}, got[0].Store)
}

func TestPrice(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{2.0, "$2.00"},
		{0.0, "$0.00"},
		{3.456, "$3.46"},
		{json.Number("1.5"), "$1.50"},
		{"2.99", "$2.99"},
		{" $2.99 ", "$2.99"},
		{"", "$-"},
		{"  ", "$-"},
		{nil, "$-"},
		{true, "$-"},
		{map[string]any{"amount": 2}, "$-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Price(tt.in), "Price(%#v)", tt.in)
	}
}

func TestDistance(t *testing.T) {
	assert.Equal(t, "1.2 miles", Distance(1.2))
	assert.Equal(t, "3.0 miles", Distance(3.0))
	assert.Equal(t, "about 2 miles", Distance("about 2 miles"))
	assert.Equal(t, models.DistanceSentinel, Distance(""))
	assert.Equal(t, models.DistanceSentinel, Distance(nil))
	assert.Equal(t, models.DistanceSentinel, Distance(false))
}

func TestWebsite(t *testing.T) {
	assert.Equal(t, "https://www.aldi.us/", Website("https://www.aldi.us/"))
	assert.Equal(t, "http://shop.example", Website("http://shop.example"))
	assert.Equal(t, "https://target.com", Website(" target.com "))
	assert.Equal(t, "", Website(""))
	assert.Equal(t, "", Website(nil))
	assert.Equal(t, "", Website([]any{"x"}))
}
