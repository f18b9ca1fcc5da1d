// Package normalize turns the loosely typed search service payload into
// canonical listings.
//
// The search service is not ours and its field names drift between versions,
// so every logical value is looked up under a list of alternate keys and the
// first usable one wins. Nothing in here returns an error: a field that is
// missing or has the wrong type falls back to a fixed default instead.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"budgetbite/pkg/models"
)

var (
	listKeys        = []string{"stores_list", "stores"}
	productNameKeys = []string{"product_name"}
	imageKeys       = []string{"product_image", "image_url", "image"}
	priceKeys       = []string{"product_price", "price", "current_price"}
	unitKeys        = []string{"unit_quantity", "unit", "quantity", "size", "package_size"}
	storeNameKeys   = []string{"store", "store_name", "name"}
	addressKeys     = []string{"address", "location"}
	distanceKeys    = []string{"distance_miles", "distance"}
	websiteKeys     = []string{"website", "store_url"}
)

// Listings extracts the listing array from payload and normalizes each
// element. query is used as the product name for elements that carry none.
func Listings(payload any, query string) []models.Listing {
	items := listOf(payload)
	listings := make([]models.Listing, 0, len(items))
	for i, item := range items {
		listings = append(listings, Listing(item, i+1, query))
	}
	return listings
}

func listOf(payload any) []any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range listKeys {
		if items, ok := obj[key].([]any); ok {
			return items
		}
	}
	return nil
}

// Listing normalizes a single payload element. id is the listing's 1-based
// position; identifiers carried by the payload are ignored.
func Listing(item any, id int, query string) models.Listing {
	obj, _ := item.(map[string]any)
	details, _ := obj["store_details"].(map[string]any)

	name := firstText(obj, productNameKeys...)
	if name == "" {
		name = query
	}

	image := firstText(obj, imageKeys...)
	if image == "" {
		image = models.PlaceholderImage
	}

	storeName := firstText(details, "store_name")
	if storeName == "" {
		storeName = firstText(obj, storeNameKeys...)
	}
	if storeName == "" {
		storeName = models.UnknownStore
	}

	address := firstText(details, "store_address")
	if address == "" {
		address = firstText(obj, addressKeys...)
	}

	distance := Distance(details["distance_from_zipcode"])
	if distance == models.DistanceSentinel {
		distance = Distance(first(obj, distanceKeys...))
	}

	website := Website(details["website"])
	if website == "" {
		website = Website(first(obj, websiteKeys...))
	}

	return models.Listing{
		ID:           id,
		ProductName:  name,
		ProductImage: image,
		ProductPrice: Price(first(obj, priceKeys...)),
		UnitQuantity: strings.TrimSpace(firstText(obj, unitKeys...)),
		Store: models.StoreDetails{
			Name:          storeName,
			Address:       address,
			DistanceLabel: distance,
			WebsiteURL:    website,
		},
	}
}

// Price formats a raw price value as "$X.XX", or returns the "$-" sentinel
// when there is nothing usable.
func Price(v any) string {
	if f, ok := number(v); ok {
		return fmt.Sprintf("$%.2f", f)
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return models.PriceSentinel
		}
		if strings.HasPrefix(s, "$") {
			return s
		}
		return "$" + s
	}
	return models.PriceSentinel
}

// Distance formats a raw distance value as "N.N miles". Strings are taken as
// already formatted.
func Distance(v any) string {
	if f, ok := number(v); ok {
		return fmt.Sprintf("%.1f miles", f)
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return models.DistanceSentinel
}

// Website makes a store link absolute. An empty value stays empty.
func Website(v any) string {
	s := strings.TrimSpace(text(v))
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "https://" + s
}

// first returns the first value under keys that normalizes to something
// usable: a number, or a non-blank string.
func first(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if _, ok := number(v); ok {
			return v
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return v
		}
	}
	return nil
}

func firstText(obj map[string]any, keys ...string) string {
	return text(first(obj, keys...))
}

func text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
