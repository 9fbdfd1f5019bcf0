// Package paginator splits ordered collections into fixed-size pages.
//
// Out-of-range or malformed page numbers never fail: anything that is not a
// positive integer selects the first page, anything past the end selects the
// last page. An empty collection still has one (empty) page.
package paginator

import "strconv"

// PerPage is the page size used by every listing.
const PerPage = 10

type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Count    int64
	PerPage  int
}

// Resolve turns a raw page query value into a valid page number for a
// collection of count items.
func Resolve(count int64, perPage int, raw string) (number, numPages int) {
	if perPage < 1 {
		perPage = PerPage
	}
	numPages = int((count + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return number, numPages
}

// Offset is the index of the first item of page number in the full collection.
func Offset(number, perPage int) int {
	if number < 1 {
		return 0
	}
	return (number - 1) * perPage
}

// NewPage wraps an already fetched window of items.
func NewPage[T any](items []T, number, numPages int, count int64, perPage int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
	}
}

// Paginate slices an in-memory ordered collection.
func Paginate[T any](items []T, perPage int, raw string) Page[T] {
	if perPage < 1 {
		perPage = PerPage
	}
	count := int64(len(items))
	number, numPages := Resolve(count, perPage, raw)

	start := Offset(number, perPage)
	end := start + perPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return NewPage(items[start:end], number, numPages, count, perPage)
}

func (p Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p Page[T]) HasOtherPages() bool { return p.HasNext() || p.HasPrevious() }

func (p Page[T]) NextPageNumber() int {
	if !p.HasNext() {
		return p.Number
	}
	return p.Number + 1
}

func (p Page[T]) PreviousPageNumber() int {
	if !p.HasPrevious() {
		return p.Number
	}
	return p.Number - 1
}

// StartIndex is the 1-based index of the first item on the page, 0 when empty.
func (p Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return Offset(p.Number, p.PerPage) + 1
}

// EndIndex is the 1-based index of the last item on the page.
func (p Page[T]) EndIndex() int {
	if p.Count == 0 {
		return 0
	}
	return Offset(p.Number, p.PerPage) + len(p.Items)
}

func (p Page[T]) PageRange() []int {
	pages := make([]int, p.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

