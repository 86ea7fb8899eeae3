package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/circleci/rfapi/counter"
	"github.com/circleci/rfapi/o11y"
)

var validate = validator.New()

const (
	codeBadInput   = "BadInput"
	codeBadRequest = "BadRequest"

	codeNotFound         = "NotFound"
	codeMethodNotAllowed = "MethodNotAllowed"
)

type errorResponse struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}

func (a *API) getCounter(c *gin.Context) {
	c.JSON(http.StatusOK, a.counter.Query(c.Request.Context()))
}

func (a *API) putCounter(c *gin.Context) {
	type request struct {
		// a pointer, so a missing counter is told apart from 0
		Counter *uint64 `json:"counter" validate:"required"`
	}

	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(c, fmt.Errorf("request body exceeded maximum size of %d bytes", tooLarge.Limit))
			return
		}
		badRequest(c, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	var req request
	err = binding.JSON.BindBody(body, &req)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	err = validate.Struct(req)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	o11y.AddField(ctx, "counter", *req.Counter)

	err = a.counter.Update(ctx, *req.Counter)
	switch {
	case errors.Is(err, counter.ErrInvalidInput):
		abortWithWarning(c, codeBadInput, err)
		return
	case err != nil:
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func badRequest(c *gin.Context, err error) {
	abortWithWarning(c, codeBadRequest, err)
}

// abortWithWarning responds 400 with the error. Client errors are handled, so
// they are recorded on the request span as warnings rather than errors.
func abortWithWarning(c *gin.Context, code string, err error) {
	ctx := c.Request.Context()
	if span := o11y.FromContext(ctx).GetSpan(ctx); span != nil {
		span.AddRawField("error_code", code)
		o11y.AddResultToSpan(span, o11y.AsWarning(err))
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		ErrorCode: code,
		Message:   err.Error(),
	})
}

// limitBody caps how much of any request body a handler can read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
