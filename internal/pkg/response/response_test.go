package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/pkg/errcode"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestSuccessEnvelope(t *testing.T) {
	c, rec := newTestContext(t)
	Success(c, gin.H{"status": "ok"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Code    uint32                 `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, uint32(0), body.Code)
	require.Equal(t, "ok", body.Data["status"])
}

func TestErrorKeepsHTTPOK(t *testing.T) {
	c, rec := newTestContext(t)
	Error(c, errcode.ErrInvalid, "query must not be empty")

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, c.IsAborted())
	var body struct {
		Code    uint32 `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, uint32(errcode.ErrInvalid), body.Code)
	require.Equal(t, "query must not be empty", body.Message)
}
