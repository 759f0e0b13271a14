package resource_test

import (
	"net/url"
	"testing"

	"github.com/Kyz7/console/internal/resource"
	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	t.Run("Success - Every catalogued resource resolves", func(t *testing.T) {
		for _, def := range resource.All() {
			got, ok := resource.Lookup(string(def.Name))
			assert.True(t, ok)
			assert.Equal(t, def.Path, got.Path)
			assert.Positive(t, got.DefaultPageSize)
			assert.NotEmpty(t, got.Columns)
		}
	})

	t.Run("Error - Unknown resource", func(t *testing.T) {
		_, ok := resource.Lookup("invoices")
		assert.False(t, ok)
	})
}

func TestExtraFilters(t *testing.T) {
	def, _ := resource.Lookup("service-entries")
	values, _ := url.ParseQuery("from=2024-01-01&to=2024-02-01&page=3&secret=1&status=")

	filters := def.ExtraFilters(values)
	assert.Equal(t, url.Values{"from": {"2024-01-01"}, "to": {"2024-02-01"}}, filters)
}
