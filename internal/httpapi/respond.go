package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type apiError struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, apiResponse{Success: true, Data: data})
}

func fail(c echo.Context, status int, message string, details any) error {
	return c.JSON(status, apiResponse{
		Success: false,
		Error:   &apiError{Message: message, Details: details},
	})
}

func failValidation(c echo.Context, fields map[string]string) error {
	return fail(c, http.StatusUnprocessableEntity, "Validation failed", fields)
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return fail(c, http.StatusInternalServerError, message, nil)
}

func decodeJSONBody(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
