// Package catalog holds the fixed choices offered when logging an expense.
package catalog

import "slices"

type Country struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Symbol   string `json:"symbol"`
}

const (
	DefaultCountry  = "India"
	DefaultCurrency = "INR"
)

// Sorted by name
var countries = []Country{
	{"Australia", "AUD", "$"},
	{"Canada", "CAD", "$"},
	{"China", "CNY", "¥"},
	{"France", "EUR", "€"},
	{"Germany", "EUR", "€"},
	{"India", "INR", "₹"},
	{"Japan", "JPY", "¥"},
	{"Singapore", "SGD", "$"},
	{"United Kingdom", "GBP", "£"},
	{"United States", "USD", "$"},
}

var categories = []string{
	"Food", "Travel", "Bills", "Groceries", "Shopping", "Health", "Education", "Entertainment",
	"Rent", "Utilities", "Transport", "Fuel", "Insurance", "Gifts", "Charity", "Investment",
	"Kids", "Pets", "Personal Care", "Fitness", "Phone", "Internet", "Subscriptions", "Other",
}

func Countries() []Country {
	return slices.Clone(countries)
}

func Categories() []string {
	return slices.Clone(categories)
}

// LookupCountry finds a country by its exact name.
func LookupCountry(name string) (Country, bool) {
	i := slices.IndexFunc(countries, func(c Country) bool { return c.Name == name })
	if i < 0 {
		return Country{}, false
	}

	return countries[i], true
}

func IsCategory(name string) bool {
	return slices.Contains(categories, name)
}
