package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"CycleScope/pkg/http/middleware"
)

// DataResponse wraps data in the APIResponse envelope. The transport status is
// always 200; statusCode travels in the body.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	c.Set(middleware.EnvelopeStatusKey, statusCode)
	return c.JSON(http.StatusOK, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// CachedSuccessResponse writes a success response that shared caches may keep for maxAge.
func CachedSuccessResponse(c echo.Context, data interface{}, maxAge time.Duration) error {
	if maxAge > 0 {
		c.Response().Header().Set(echo.HeaderCacheControl, fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
	}
	return SuccessResponse(c, data)
}

func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// AppErrorResponse writes err as a one-element error list under its own status.
// Anything that is not an AppError is reported as an opaque 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
}
