package tablequery

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ColumnSort is one entry of a table's sort intent, keyed by UI column id.
type ColumnSort struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// SortingState is ordered: the first entry is the primary sort.
type SortingState []ColumnSort

// SortSpec is the API-bound form of a ColumnSort.
type SortSpec struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// ColumnMap maps UI column ids to API sort field names.
type ColumnMap map[string]string

func (m ColumnMap) Inverse() map[string]string {
	inv := make(map[string]string, len(m))
	for col, field := range m {
		inv[field] = col
	}
	return inv
}

// Indexes are canonical decimals; "sort[01]" would alias "sort[1]".
var sortKeyPattern = regexp.MustCompile(`^sort\[(0|[1-9]\d*)\]\[(field|direction)\]$`)

func ToAPISort(sorting SortingState, columns ColumnMap) []SortSpec {
	specs := make([]SortSpec, 0, len(sorting))
	for _, s := range sorting {
		field, ok := columns[s.ID]
		if !ok || field == "" {
			continue
		}
		dir := Asc
		if s.Desc {
			dir = Desc
		}
		specs = append(specs, SortSpec{Field: field, Direction: dir})
	}
	return specs
}

func FromURLParams(values url.Values, columns ColumnMap) SortingState {
	type bucket struct {
		field     string
		direction string
	}

	buckets := map[int]*bucket{}
	for key, vals := range values {
		m := sortKeyPattern.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		b, ok := buckets[idx]
		if !ok {
			b = &bucket{}
			buckets[idx] = b
		}
		if m[2] == "field" {
			b.field = vals[0]
		} else {
			b.direction = vals[0]
		}
	}

	indexes := make([]int, 0, len(buckets))
	for idx := range buckets {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	inverse := columns.Inverse()
	sorting := SortingState{}
	for _, idx := range indexes {
		b := buckets[idx]
		col, ok := inverse[b.field]
		if !ok {
			continue
		}
		sorting = append(sorting, ColumnSort{
			ID:   col,
			Desc: strings.EqualFold(strings.TrimSpace(b.direction), string(Desc)),
		})
	}
	return sorting
}

// EncodeSort writes specs as sort[N][field] / sort[N][direction] pairs.
func EncodeSort(values url.Values, specs []SortSpec) {
	for i, s := range specs {
		values.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		values.Set(fmt.Sprintf("sort[%d][direction]", i), string(s.Direction))
	}
}

func ToURLParams(sorting SortingState, columns ColumnMap) url.Values {
	values := url.Values{}
	EncodeSort(values, ToAPISort(sorting, columns))
	return values
}

func EqualSorting(a, b SortingState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Desc != b[i].Desc {
			return false
		}
	}
	return true
}

func clearSort(values url.Values) {
	for key := range values {
		if strings.HasPrefix(key, "sort[") {
			values.Del(key)
		}
	}
}

func clone(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// BuildListQuery derives the list request parameters from base, replacing the
// pagination, search and sort keys and keeping everything else.
func BuildListQuery(base url.Values, pageIndex, pageSize int, search string, sorting SortingState, columns ColumnMap) url.Values {
	q := clone(base)

	q.Set("page", strconv.Itoa(pageIndex+1))
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("items_per_page", strconv.Itoa(pageSize))

	if s := strings.TrimSpace(search); s != "" {
		q.Set("search", s)
	} else {
		q.Del("search")
	}

	clearSort(q)
	EncodeSort(q, ToAPISort(sorting, columns))
	return q
}
