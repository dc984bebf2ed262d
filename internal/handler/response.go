package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/clinicware/clinic-api/pkg/apierror"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error renders any error through the taxonomy: AppErrors keep their status
// and client message, everything else collapses to an opaque 500. Nothing
// internal leaks to the client.
func Error(c *gin.Context, err error) {
	var appErr *apierror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
		return
	}
	_ = c.Error(err) // surface to the request logger
	c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}

// BindError renders a request-binding failure as a Validation error with a
// readable field list when the cause is struct validation.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msg := "invalid request"
		if len(verrs) > 0 {
			msg = "invalid field: " + verrs[0].Field()
		}
		c.JSON(http.StatusBadRequest, NewErrorResponse(msg))
		return
	}
	c.JSON(http.StatusBadRequest, NewErrorResponse("malformed request body"))
}
