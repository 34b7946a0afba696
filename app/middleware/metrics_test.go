package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordsRequests(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/ping", func(c fiber.Ctx) error {
		return c.SendString("pong")
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping", "200"))

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping", "200"))
	assert.Equal(t, before+1, after)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/campaigns/:uuid", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/campaigns/123e4567", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	// The matched template is the label, not the concrete path
	templated := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/campaigns/:uuid", "200"))
	assert.GreaterOrEqual(t, templated, float64(1))

	concrete := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/campaigns/123e4567", "200"))
	assert.Zero(t, concrete)
}
