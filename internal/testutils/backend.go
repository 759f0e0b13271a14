package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

var sortKey = regexp.MustCompile(`^sort\[(\d+)\]\[(field|direction)\]$`)

// FakeBackend is an in-memory stand-in for the REST backend, speaking its
// success/error envelope for list and delete calls.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	records  map[string][]map[string]any
	failures map[string]int
	queries  []string
}

func NewFakeBackend(t *testing.T) *FakeBackend {
	b := &FakeBackend{
		records:  map[string][]map[string]any{},
		failures: map[string]int{},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

func (b *FakeBackend) URL() string {
	return b.Server.URL
}

// Seed replaces the records served under path.
func (b *FakeBackend) Seed(path string, rows ...map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[path] = rows
}

// SeedUsers fills /users with n rows cycling through the given roles.
func (b *FakeBackend) SeedUsers(n int, roles ...string) {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"id":    strconv.Itoa(i + 1),
			"name":  fmt.Sprintf("User %02d", i+1),
			"email": fmt.Sprintf("user%02d@example.com", i+1),
			"role":  roles[i%len(roles)],
		}
	}
	b.Seed("/users", rows...)
}

// FailNext makes the next request to path answer with status and a backend error.
func (b *FakeBackend) FailNext(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = status
}

func (b *FakeBackend) Count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records[path])
}

// Queries returns the raw query strings of every list call received.
func (b *FakeBackend) Queries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

func (b *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		b.list(w, r)
	case http.MethodDelete:
		b.delete(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (b *FakeBackend) takeFailure(w http.ResponseWriter, r *http.Request, path string) bool {
	status, ok := b.failures[path]
	if !ok {
		return false
	}
	delete(b.failures, path)
	writeError(w, r, status, "Backend refused the request")
	return true
}

func (b *FakeBackend) list(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	b.queries = append(b.queries, r.URL.RawQuery)
	if b.takeFailure(w, r, path) {
		return
	}

	rows, ok := b.records[path]
	if !ok {
		writeError(w, r, http.StatusNotFound, "Not found")
		return
	}

	q := r.URL.Query()
	filtered := make([]map[string]any, 0, len(rows))
	search := strings.ToLower(q.Get("search"))
	for _, row := range rows {
		if search != "" && !strings.Contains(strings.ToLower(fmt.Sprint(row["name"])), search) {
			continue
		}
		if !matchesFilters(row, q) {
			continue
		}
		filtered = append(filtered, row)
	}

	field, desc := firstSort(q)
	if field != "" {
		sort.SliceStable(filtered, func(i, j int) bool {
			a, c := fmt.Sprint(filtered[i][field]), fmt.Sprint(filtered[j][field])
			if desc {
				return a > c
			}
			return a < c
		})
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}

	total := len(filtered)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	writeData(w, http.StatusOK, map[string]any{
		"items": filtered[start:end],
		"pagination": map[string]int{
			"page":        page,
			"per_page":    limit,
			"total":       total,
			"total_pages": totalPages,
		},
	}, "")
}

func (b *FakeBackend) delete(w http.ResponseWriter, r *http.Request) {
	idx := strings.LastIndex(r.URL.Path, "/")
	path, id := r.URL.Path[:idx], r.URL.Path[idx+1:]
	if b.takeFailure(w, r, path) {
		return
	}

	rows := b.records[path]
	for i, row := range rows {
		if fmt.Sprint(row["id"]) == id {
			b.records[path] = append(rows[:i:i], rows[i+1:]...)
			writeData(w, http.StatusOK, nil, "Record deleted successfully")
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "Record not found")
}

var reserved = map[string]bool{"page": true, "limit": true, "items_per_page": true, "search": true}

func matchesFilters(row map[string]any, q map[string][]string) bool {
	for key, vals := range q {
		if reserved[key] || sortKey.MatchString(key) || len(vals) == 0 {
			continue
		}
		if fmt.Sprint(row[key]) != vals[0] {
			return false
		}
	}
	return true
}

func firstSort(q map[string][]string) (string, bool) {
	var field string
	desc := false
	for key, vals := range q {
		m := sortKey.FindStringSubmatch(key)
		if m == nil || m[1] != "0" || len(vals) == 0 {
			continue
		}
		if m[2] == "field" {
			field = vals[0]
		} else {
			desc = strings.EqualFold(vals[0], "desc")
		}
	}
	return field, desc
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	body := map[string]any{
		"success":     true,
		"status_code": status,
		"data":        data,
	}
	if message != "" {
		body["success_message"] = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success":     false,
		"status_code": status,
		"error_details": map[string]any{
			"message": message,
			"method":  r.Method,
			"path":    r.URL.Path,
		},
	})
}
