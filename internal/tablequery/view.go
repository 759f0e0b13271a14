package tablequery

import (
	"net/url"
	"strconv"
	"strings"
)

const MaxPageSize = 100

// View is the URL-persisted part of a table's state.
type View struct {
	PageIndex int          `json:"page_index"`
	PageSize  int          `json:"page_size"`
	Search    string       `json:"search"`
	Sorting   SortingState `json:"sorting"`
}

// DecodeView reads page (1-based), limit or items_per_page, search and sort keys.
// Missing or malformed numbers fall back to the first page and defaultPageSize.
func DecodeView(values url.Values, columns ColumnMap, defaultPageSize int) View {
	v := View{
		PageIndex: 0,
		PageSize:  defaultPageSize,
		Search:    values.Get("search"),
		Sorting:   FromURLParams(values, columns),
	}

	if page, err := strconv.Atoi(strings.TrimSpace(values.Get("page"))); err == nil && page > 0 {
		v.PageIndex = page - 1
	}

	sizeStr := strings.TrimSpace(values.Get("limit"))
	if sizeStr == "" {
		sizeStr = strings.TrimSpace(values.Get("items_per_page"))
	}
	if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 {
		if size > MaxPageSize {
			size = MaxPageSize
		}
		v.PageSize = size
	}

	return v
}

// Encode renders the view onto base the same way list requests are built, so the
// browser URL and the backend request share one representation.
func (v View) Encode(base url.Values, columns ColumnMap) url.Values {
	return BuildListQuery(base, v.PageIndex, v.PageSize, v.Search, v.Sorting, columns)
}
