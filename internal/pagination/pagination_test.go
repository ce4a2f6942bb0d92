package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramsFor(t *testing.T, query string, def int) Params {
	t.Helper()
	var got Params
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got = FromContext(c, def)
		return nil
	})
	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+query, nil))
	require.NoError(t, err)
	return got
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, Params{Limit: 20, Offset: 0}, paramsFor(t, "", 0))
	assert.Equal(t, Params{Limit: 10, Offset: 0}, paramsFor(t, "", 10))
	assert.Equal(t, Params{Limit: 100, Offset: 5}, paramsFor(t, "?limit=500&offset=5", 0))
	assert.Equal(t, Params{Limit: 10, Offset: 20}, paramsFor(t, "?page=3", 10))
	assert.Equal(t, Params{Limit: 20, Offset: 0}, paramsFor(t, "?limit=abc&offset=-3", 0))
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]int{1, 2}, 25, Params{Limit: 10, Offset: 10})
	assert.Equal(t, 2, r.Page)
	assert.Equal(t, int64(3), r.Pages)
	assert.True(t, r.HasMore)

	r = NewResponse([]int{}, 20, Params{Limit: 10, Offset: 10})
	assert.False(t, r.HasMore)
}
