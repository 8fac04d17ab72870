// Package response writes JSON bodies for gin handlers. Errors are
// rendered as {"error": msg, "code": KIND} with the status of their kind.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/logging"
)

func OK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

func Created(c *gin.Context, body any) {
	c.JSON(http.StatusCreated, body)
}

// List writes the {"data","meta"} envelope used by every list endpoint.
func List(c *gin.Context, data any, meta gin.H) {
	c.JSON(http.StatusOK, gin.H{"data": data, "meta": meta})
}

// Error logs err by severity and writes its status and body.
func Error(c *gin.Context, log logging.Logger, err error) {
	e := apperr.From(err)
	logError(c, log, e)
	c.JSON(e.Status(), body(e))
}

// Abort is Error for middleware: it also stops the handler chain.
func Abort(c *gin.Context, log logging.Logger, err error) {
	e := apperr.From(err)
	logError(c, log, e)
	c.AbortWithStatusJSON(e.Status(), body(e))
}

// BadRequest reports a binding failure as a validation error.
func BadRequest(c *gin.Context, log logging.Logger, err error) {
	Error(c, log, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
}

func body(e *apperr.Error) gin.H {
	return gin.H{"error": e.Message, "code": e.Kind}
}

func logError(c *gin.Context, log logging.Logger, e *apperr.Error) {
	if log == nil {
		return
	}
	args := []any{"kind", e.Kind, "method", c.Request.Method, "path", c.FullPath()}
	if pid, ok := c.Get(PersonIDKey); ok {
		args = append(args, "person_id", pid)
	}
	if e.Routine() {
		log.Info(c.Request.Context(), e.Message, args...)
		return
	}
	if e.Err != nil {
		args = append(args, "err", e.Err.Error())
	}
	log.Error(c.Request.Context(), e.Message, args...)
}

// PersonIDKey is the gin context key under which the caller's id is stored.
const PersonIDKey = "person_id"
