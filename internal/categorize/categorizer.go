// Package categorize assigns a category from a closed taxonomy to a merchant
// string using ordered keyword groups.
package categorize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category names. The set is closed.
const (
	FoodAndDining  = "Food & Dining"
	Groceries      = "Groceries"
	Transportation = "Transportation"
	Shopping       = "Shopping"
	Entertainment  = "Entertainment"
	Utilities      = "Utilities"
	Healthcare     = "Healthcare"
	Travel         = "Travel"
	Other          = "Other"
)

// Rule maps a set of lowercase keywords to a category.
type Rule struct {
	Category string
	Keywords []string
}

// Categorizer matches merchants against rules in order; the first rule with a
// keyword contained in the merchant wins.
type Categorizer struct {
	rules []Rule
}

// New returns a categorizer with the default rules.
func New() *Categorizer {
	return &Categorizer{rules: defaultRules()}
}

// newWithRules returns a categorizer with custom rules, checked in order.
func newWithRules(rules []Rule) *Categorizer {
	return &Categorizer{rules: rules}
}

// Categorize returns the category for merchant. The amount is accepted for
// API compatibility and is not used by any rule.
func (c *Categorizer) Categorize(merchant string, _ decimal.Decimal) string {
	m := strings.ToLower(merchant)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(m, kw) {
				return rule.Category
			}
		}
	}
	return Other
}

// Categories returns the full taxonomy in priority order.
func Categories() []string {
	return []string{
		FoodAndDining, Groceries, Transportation, Shopping,
		Entertainment, Utilities, Healthcare, Travel, Other,
	}
}

// IsKnownCategory reports whether name belongs to the taxonomy.
func IsKnownCategory(name string) bool {
	for _, c := range Categories() {
		if c == name {
			return true
		}
	}
	return false
}

func defaultRules() []Rule {
	return []Rule{
		{
			Category: FoodAndDining,
			Keywords: []string{
				"restaurant", "cafe", "coffee", "starbucks", "mcdonald", "burger",
				"pizza", "kfc", "subway", "domino", "dunkin", "chipotle",
				"diner", "bistro", "grill", "sushi", "taco", "bakery", "doordash",
				"uber eats", "ubereats", "grubhub", "zomato", "swiggy",
			},
		},
		{
			Category: Groceries,
			Keywords: []string{
				"grocery", "supermarket", "walmart", "kroger", "safeway",
				"whole foods", "trader joe", "aldi", "costco", "publix", "lidl",
				"market", "big bazaar", "dmart",
			},
		},
		{
			Category: Transportation,
			Keywords: []string{
				"uber", "lyft", "taxi", "metro", "transit", "fuel", "gas station",
				"shell", "chevron", "exxon", "parking", "toll", "ola cabs", "petrol",
			},
		},
		{
			Category: Shopping,
			Keywords: []string{
				"amazon", "ebay", "target", "best buy", "mall", "store", "shop",
				"flipkart", "ikea", "etsy", "myntra", "apparel", "clothing",
			},
		},
		{
			Category: Entertainment,
			Keywords: []string{
				"netflix", "spotify", "cinema", "movie", "theater", "theatre",
				"hulu", "disney", "steam", "playstation", "xbox", "concert",
				"prime video", "youtube",
			},
		},
		{
			Category: Utilities,
			Keywords: []string{
				"electric", "water", "utility", "internet", "comcast", "verizon",
				"at&t", "t-mobile", "phone", "broadband", "power", "energy",
			},
		},
		{
			Category: Healthcare,
			Keywords: []string{
				"pharmacy", "hospital", "clinic", "doctor", "dental", "cvs",
				"walgreens", "medical", "health", "apollo",
			},
		},
		{
			Category: Travel,
			Keywords: []string{
				"airline", "airways", "hotel", "airbnb", "booking", "expedia",
				"marriott", "hilton", "flight", "delta", "united", "emirates",
				"makemytrip",
			},
		},
	}
}
