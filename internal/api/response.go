package api

import (
	"errors"
	"net/http"

	"github.com/UnknownOlympus/branchmap/internal/screen"
	"github.com/labstack/echo/v4"
)

// Stable messages returned to clients. Raw errors only go to the log.
const (
	MsgBranchNotFound   = "Branch not found"
	MsgBranchesFailed   = "Failed to load branches"
	MsgATMsFailed       = "Failed to load ATMs"
	MsgSnapshotFailed   = "Failed to render map"
	MsgSnapshotDisabled = "Map snapshots are disabled"
	MsgBadRequest       = "Invalid request"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Status  bool   `json:"status"`
	Body    any    `json:"body,omitempty"`
	Message string `json:"message"`
}

func successResponse(c echo.Context, body any, message string) error {
	return c.JSON(http.StatusOK, &Response{Status: true, Body: body, Message: message})
}

func errorResponse(c echo.Context, code int, message string, body any) error {
	return c.JSON(code, &Response{Status: false, Body: body, Message: message})
}

// branchError maps a failure to open a branch to a status code and message.
func branchError(err error) (int, string) {
	if errors.Is(err, screen.ErrBranchNotFound) {
		return http.StatusNotFound, MsgBranchNotFound
	}
	return http.StatusBadGateway, MsgBranchesFailed
}
