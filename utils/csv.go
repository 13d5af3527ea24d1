package utils

import "strings"

// Canonical lead import columns. Header matching is intentionally simple;
// fuzzy column-alias detection belongs to the import wizard frontend.
var leadCSVColumns = map[string]string{
	"company":      "company_name",
	"company_name": "company_name",
	"business":     "company_name",
	"contact":      "contact_name",
	"contact_name": "contact_name",
	"name":         "contact_name",
	"email":        "email",
	"phone":        "phone",
	"phone_number": "phone",
	"website":      "website",
	"url":          "website",
	"city":         "city",
	"notes":        "notes",
}

// NormalizeCSVHeader maps a raw CSV header cell to its canonical lead
// column, or "" when the column is unknown and should be ignored.
func NormalizeCSVHeader(header string) string {
	key := strings.ToLower(strings.TrimSpace(header))
	key = strings.ReplaceAll(key, " ", "_")
	return leadCSVColumns[key]
}
