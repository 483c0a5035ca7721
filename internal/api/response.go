package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the standard success envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the standard error envelope. Failures carry a generic
// message with no partial-success detail.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// PaginatedResponse wraps one page of results.
type PaginatedResponse struct {
	Success bool        `json:"success"`
	Page    int         `json:"page"`
	Size    int         `json:"size"`
	Total   int         `json:"total"`
	Data    interface{} `json:"data"`
}

func success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func paginated(c echo.Context, data interface{}, page, size, total int) error {
	return c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Page:    page,
		Size:    size,
		Total:   total,
		Data:    data,
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{Success: false, Error: message})
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Error: message})
}
