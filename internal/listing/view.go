package listing

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/dukerupert/citievents/internal/model"
)

const DefaultPageSize = 5

// Filter is the admin list filter. Date must match exactly (YYYY-MM-DD);
// Title matches as a case-insensitive substring. Empty fields match all.
type Filter struct {
	Date  string `json:"date,omitempty"`
	Title string `json:"title,omitempty"`
}

func (f Filter) IsZero() bool {
	return f.Date == "" && f.Title == ""
}

func (f Filter) Match(it model.Item) bool {
	if f.Date != "" && it.Date.String() != f.Date {
		return false
	}
	if f.Title != "" {
		fold := cases.Fold()
		if !strings.Contains(fold.String(it.Title), fold.String(f.Title)) {
			return false
		}
	}
	return true
}

func (f Filter) Apply(items []model.Item) []model.Item {
	if f.IsZero() {
		return items
	}
	var out []model.Item
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

// View is a filtered, paginated window over a list. Pages are 1-based.
// Changing the filter returns to page 1; replacing the items keeps the page
// when it still exists.
type View struct {
	items    []model.Item
	filter   Filter
	filtered []model.Item
	page     int
	pageSize int
}

func NewView(pageSize int) *View {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &View{page: 1, pageSize: pageSize}
}

func (v *View) SetItems(items []model.Item) {
	v.items = items
	v.filtered = v.filter.Apply(items)
	v.SetPage(v.page)
}

func (v *View) SetFilter(f Filter) {
	v.filter = f
	v.filtered = f.Apply(v.items)
	v.page = 1
}

// SetPage moves to page n, clamped to the existing pages.
func (v *View) SetPage(n int) {
	last := max(v.PageCount(), 1)
	v.page = min(max(n, 1), last)
}

func (v *View) CurrentPage() int {
	return v.page
}

func (v *View) PageSize() int {
	return v.pageSize
}

// Total is the number of items passing the filter.
func (v *View) Total() int {
	return len(v.filtered)
}

func (v *View) PageCount() int {
	return (len(v.filtered) + v.pageSize - 1) / v.pageSize
}

// Page returns the items of the current page.
func (v *View) Page() []model.Item {
	start := (v.page - 1) * v.pageSize
	if start >= len(v.filtered) {
		return nil
	}
	end := min(start+v.pageSize, len(v.filtered))
	return v.filtered[start:end]
}
