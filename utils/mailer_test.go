package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot/models"
)

func TestRenderTemplate(t *testing.T) {
	lead := &models.Lead{
		CompanyName: "Acme Plumbing",
		ContactName: "Dana",
		City:        "Austin",
	}

	out := RenderTemplate("Hi {{contact_name}}, loved what {{company_name}} is doing in {{city}}!", lead)
	assert.Equal(t, "Hi Dana, loved what Acme Plumbing is doing in Austin!", out)
}

func TestRenderTemplateMissingFields(t *testing.T) {
	lead := &models.Lead{CompanyName: "Acme"}

	// Placeholders for empty fields collapse to nothing rather than erroring
	out := RenderTemplate("{{company_name}} / {{contact_name}} / {{city}}", lead)
	assert.Equal(t, "Acme /  / ", out)
}

func TestValidateLeadEmailFormat(t *testing.T) {
	require.NoError(t, ValidateLeadEmail("dana@example.com", false))
	assert.Error(t, ValidateLeadEmail("not-an-email", false))
	assert.Error(t, ValidateLeadEmail("", false))
}
