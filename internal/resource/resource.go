package resource

import (
	"net/url"

	"github.com/Kyz7/console/internal/tablequery"
)

type Name string

const (
	Users          Name = "users"
	Providers      Name = "providers"
	Customers      Name = "customers"
	ServiceEntries Name = "service-entries"
	Surveys        Name = "surveys"
)

// Definition describes one list screen and the backend endpoint behind it.
type Definition struct {
	Name            Name
	Path            string
	Columns         tablequery.ColumnMap
	Filters         []string
	DefaultPageSize int
	// RoleField names the item attribute holding the row owner's role; empty when
	// the rows are not role-bearing.
	RoleField string
}

var catalogue = map[Name]Definition{
	Users: {
		Name: Users,
		Path: "/users",
		Columns: tablequery.ColumnMap{
			"name":      "name",
			"email":     "email",
			"role":      "role",
			"status":    "status",
			"createdAt": "created_at",
		},
		Filters:         []string{"role", "status"},
		DefaultPageSize: 10,
		RoleField:       "role",
	},
	Providers: {
		Name: Providers,
		Path: "/proveedores",
		Columns: tablequery.ColumnMap{
			"name":      "name",
			"category":  "category",
			"email":     "email",
			"phone":     "phone",
			"createdAt": "created_at",
		},
		Filters:         []string{"category", "status"},
		DefaultPageSize: 10,
	},
	Customers: {
		Name: Customers,
		Path: "/customers",
		Columns: tablequery.ColumnMap{
			"name":      "name",
			"email":     "email",
			"company":   "company",
			"city":      "city",
			"createdAt": "created_at",
		},
		Filters:         []string{"city"},
		DefaultPageSize: 10,
	},
	ServiceEntries: {
		Name: ServiceEntries,
		Path: "/service-entries",
		Columns: tablequery.ColumnMap{
			"customer":    "customer_name",
			"provider":    "provider_name",
			"serviceDate": "service_date",
			"status":      "status",
			"amount":      "amount",
			"createdAt":   "created_at",
		},
		Filters:         []string{"from", "to", "status", "category"},
		DefaultPageSize: 10,
	},
	Surveys: {
		Name: Surveys,
		Path: "/surveys",
		Columns: tablequery.ColumnMap{
			"customer":    "customer_name",
			"provider":    "provider_name",
			"score":       "score",
			"submittedAt": "submitted_at",
		},
		Filters:         []string{"from", "to", "score"},
		DefaultPageSize: 10,
	},
}

func Lookup(name string) (Definition, bool) {
	def, ok := catalogue[Name(name)]
	return def, ok
}

func All() []Definition {
	return []Definition{
		catalogue[Users],
		catalogue[Providers],
		catalogue[Customers],
		catalogue[ServiceEntries],
		catalogue[Surveys],
	}
}

// ExtraFilters keeps only the resource-specific filter keys from values.
func (d Definition) ExtraFilters(values url.Values) url.Values {
	out := url.Values{}
	for _, key := range d.Filters {
		if v := values.Get(key); v != "" {
			out.Set(key, v)
		}
	}
	return out
}
