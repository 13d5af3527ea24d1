package routes

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

// registeredRoutes maps "METHOD path" for every route the API group mounts.
// Handlers are never invoked, so no database is needed.
func registeredRoutes() map[string]bool {
	app := fiber.New()
	SetupAPIRoutes(app, nil)

	seen := make(map[string]bool)
	for _, route := range app.GetRoutes() {
		seen[route.Method+" "+route.Path] = true
	}
	return seen
}

func TestTaskRoutesRegistered(t *testing.T) {
	seen := registeredRoutes()

	assert.True(t, seen["GET /api/v1/tasks/buckets"])
	assert.True(t, seen["GET /api/v1/tasks/counts"])
	assert.True(t, seen["POST /api/v1/tasks/:leadID/complete"])
	assert.True(t, seen["POST /api/v1/tasks/:leadID/skip"])
}

func TestSessionRoutesRegistered(t *testing.T) {
	seen := registeredRoutes()

	assert.True(t, seen["POST /api/v1/session/start"])
	assert.True(t, seen["POST /api/v1/session/complete"])
	assert.True(t, seen["POST /api/v1/session/skip"])
	assert.True(t, seen["POST /api/v1/session/abort"])
	assert.True(t, seen["GET /api/v1/session/summary"])
}
