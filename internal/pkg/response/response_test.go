package response

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginated(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Paginated(c, "Loans retrieved", []string{"a", "b"}, Pagination{Page: 2, Limit: 2, Total: 5, TotalPages: 3})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "success", out["status"])
	assert.Len(t, out["data"], 2)
	meta := out["metadata"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["page"])
	assert.Equal(t, float64(5), meta["total"])
	assert.Equal(t, float64(3), meta["totalPages"])
}

func TestError_DefaultsDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return Error(c, "nope", fiber.StatusConflict, nil) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	var out ErrorBody
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "error", out.Status)
	assert.Equal(t, "nope", out.Error.Message)
	assert.Equal(t, fiber.StatusConflict, out.Error.StatusCode)
	assert.NotNil(t, out.Error.Details)
}
