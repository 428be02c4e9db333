package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"wastebill/server/internal/services"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err, "Something failed")
	return w
}

func TestRespondError(t *testing.T) {
	t.Run("validation maps to 400", func(t *testing.T) {
		w := respond(&services.ValidationError{Field: "date", Message: "required"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "date")
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		w := respond(&services.NotFoundError{Entity: "invoice", ID: "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("conflict maps to 409 with linkage fields", func(t *testing.T) {
		w := respond(&services.ConflictError{
			ManifestNo: "MF-1",
			InvoiceNo:  "INV-202608-0001",
			Message:    "manifest MF-1 is already billed on invoice INV-202608-0001",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "MF-1")
		assert.Contains(t, w.Body.String(), "INV-202608-0001")
	})

	t.Run("unknown errors map to 500", func(t *testing.T) {
		w := respond(errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Something failed")
	})
}

func TestParseKafkaBrokers(t *testing.T) {
	assert.Empty(t, ParseKafkaBrokers(""))
	assert.Equal(t, []string{"localhost:9092"}, ParseKafkaBrokers("localhost:9092"))
	assert.Equal(t,
		[]string{"a:9092", "b:9092"},
		ParseKafkaBrokers("a:9092, b:9092"))
	assert.Equal(t, []string{"a:9092"}, ParseKafkaBrokers("a:9092,,"))
}
