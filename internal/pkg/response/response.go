// Package response writes the API envelope shared by every endpoint:
// {"code": N, "message": "...", "data": ...}. Failures keep HTTP 200
// and carry a numeric errcode instead, so clients branch on the code
// field rather than the transport status.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// apiError satisfies the Code() accessor proxyutil looks for when it
// fills the envelope's code field.
type apiError struct {
	code uint32
	msg  string
}

func (e *apiError) Error() string {
	return e.msg
}

func (e *apiError) Code() uint32 {
	return e.code
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error aborts the request with the given errcode. The message is what
// the client displays, so keep it free of internal detail.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, http.StatusOK, &apiError{code: uint32(code), msg: message})
}
