package pagination

import (
	"fmt"
	"slices"
)

const DefaultPageSize = 6

var PageSizes = []int{3, 6, 9, 12}

func ValidPageSize(size int) bool {
	return slices.Contains(PageSizes, size)
}

// NextPageSize cycles through PageSizes.
func NextPageSize(size int) int {
	i := slices.Index(PageSizes, size)
	return PageSizes[(i+1)%len(PageSizes)]
}

// TotalPages is ceil(n/size). An empty set has zero pages.
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Page returns the items on the given 1-based page, clipped to the bounds of
// items. The returned slice shares the backing array with items.
func Page[T any](items []T, page, size int) []T {
	if size <= 0 || page < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := min(start+size, len(items))
	return items[start:end:end]
}

// Window describes which slice of the result set a page shows, 1-based and
// inclusive, as in "Showing 4 to 6 of 7 results".
type Window struct {
	First int
	Last  int
	Total int
}

func (w Window) String() string {
	return fmt.Sprintf("Showing %d to %d of %d results", w.First, w.Last, w.Total)
}

// State is the pagination view over a result set.
type State struct {
	CurrentPage int
	PageSize    int
}

func NewState() State {
	return State{CurrentPage: 1, PageSize: DefaultPageSize}
}

// Reset goes back to the first page, keeping the page size.
func (s *State) Reset() {
	s.CurrentPage = 1
}

// SetPageSize switches to size and goes back to the first page.
func (s *State) SetPageSize(size int) error {
	if !ValidPageSize(size) {
		return fmt.Errorf("page size %d not supported, use one of %v", size, PageSizes)
	}
	s.PageSize = size
	s.CurrentPage = 1
	return nil
}

// Go moves to page, clipped to [1, totalPages] for a set of n items.
func (s *State) Go(page, n int) {
	total := TotalPages(n, s.PageSize)
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	s.CurrentPage = page
}

func (s State) TotalPages(n int) int {
	return TotalPages(n, s.PageSize)
}

func (s State) HasPrev() bool {
	return s.CurrentPage > 1
}

func (s State) HasNext(n int) bool {
	return s.CurrentPage < s.TotalPages(n)
}

func (s State) Window(n int) Window {
	first := (s.CurrentPage-1)*s.PageSize + 1
	last := min(s.CurrentPage*s.PageSize, n)
	if first > n {
		return Window{Total: n}
	}
	return Window{First: first, Last: last, Total: n}
}

// Apply returns the current page of items.
func Apply[T any](s State, items []T) []T {
	return Page(items, s.CurrentPage, s.PageSize)
}
