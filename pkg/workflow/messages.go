package workflow

import "fmt"

const (
	TitleLoading = "Searching for Stores..."
	TitleFailed  = "Error Loading Deals"
	TitleEmpty   = "No Results Found"
)

// Miles renders a radius with the right plural.
func Miles(n int) string {
	if n == 1 {
		return "1 mile"
	}
	return fmt.Sprintf("%d miles", n)
}

func (v View) LoadingText() string {
	return fmt.Sprintf("We're finding the best stores for %q in your area", v.Request.ProductName)
}

func (v View) EmptyText() string {
	return fmt.Sprintf("We couldn't find any deals for %q in zip code %s within %s.",
		v.Request.ProductName, v.Request.ZipCode, Miles(v.Request.RadiusMiles))
}
