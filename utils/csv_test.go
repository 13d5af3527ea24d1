package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCSVHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Company", "company_name"},
		{"company_name", "company_name"},
		{" Business ", "company_name"},
		{"Contact Name", "contact_name"},
		{"EMAIL", "email"},
		{"Phone Number", "phone"},
		{"url", "website"},
		{"City", "city"},
		{"revenue", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCSVHeader(tt.in), "header %q", tt.in)
	}
}
