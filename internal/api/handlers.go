package api

import (
	"bytes"
	"net/http"

	"github.com/UnknownOlympus/branchmap/internal/mapview"
	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/UnknownOlympus/branchmap/internal/screen"
	"github.com/labstack/echo/v4"
)

type searchRequest struct {
	Query string `query:"q" validate:"max=200"`
}

type branchRequest struct {
	ID string `param:"id" validate:"required,max=128"`
}

type snapshotRequest struct {
	ID   string `param:"id"   validate:"required,max=128"`
	ATMs bool   `query:"atms"`
}

type branchListBody struct {
	Query    string          `json:"query"`
	Branches []models.Branch `json:"branches"`
}

func (s *Server) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func (s *Server) listBranches(c echo.Context) error {
	var req searchRequest
	if err := s.bind(c, &req); err != nil {
		return errorResponse(c, http.StatusBadRequest, MsgBadRequest, nil)
	}

	ctx := c.Request().Context()
	result := s.locator.Search(ctx, req.Query)
	if result.Err != nil {
		s.log.ErrorContext(ctx, "Failed to load branches", "error", result.Err)
		return errorResponse(c, http.StatusBadGateway, MsgBranchesFailed, nil)
	}

	branches := result.Branches
	if branches == nil {
		branches = []models.Branch{}
	}
	return successResponse(c, branchListBody{Query: result.Query, Branches: branches}, result.Message)
}

func (s *Server) branchDetail(c echo.Context) error {
	var req branchRequest
	if err := s.bind(c, &req); err != nil {
		return errorResponse(c, http.StatusBadRequest, MsgBadRequest, nil)
	}

	ctx := c.Request().Context()
	view, err := s.locator.Detail(ctx, req.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to open branch", "id", req.ID, "error", err)
		code, msg := branchError(err)
		return errorResponse(c, code, msg, nil)
	}

	return successResponse(c, view, "")
}

func (s *Server) nearbyATMs(c echo.Context) error {
	var req branchRequest
	if err := s.bind(c, &req); err != nil {
		return errorResponse(c, http.StatusBadRequest, MsgBadRequest, nil)
	}

	ctx := c.Request().Context()
	view, err := s.locator.Nearby(ctx, req.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load nearby ATMs", "id", req.ID, "error", err)
		if view.Branch.ID == "" {
			code, msg := branchError(err)
			return errorResponse(c, code, msg, nil)
		}
		return errorResponse(c, http.StatusBadGateway, MsgATMsFailed, view)
	}

	return successResponse(c, view, view.Status)
}

func (s *Server) mapSnapshot(c echo.Context) error {
	if s.snapshot == nil {
		return errorResponse(c, http.StatusServiceUnavailable, MsgSnapshotDisabled, nil)
	}

	var req snapshotRequest
	if err := s.bind(c, &req); err != nil {
		return errorResponse(c, http.StatusBadRequest, MsgBadRequest, nil)
	}

	ctx := c.Request().Context()
	var (
		view screen.DetailView
		err  error
	)
	if req.ATMs {
		view, err = s.locator.Nearby(ctx, req.ID)
	} else {
		view, err = s.locator.Detail(ctx, req.ID)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to open branch for snapshot", "id", req.ID, "error", err)
		if view.Branch.ID == "" {
			code, msg := branchError(err)
			return errorResponse(c, code, msg, nil)
		}
		return errorResponse(c, http.StatusBadGateway, MsgATMsFailed, nil)
	}

	widget := mapview.NewWidget(view.Region)
	widget.SetMarkers(view.Markers)

	var buf bytes.Buffer
	if err = s.snapshot.RenderWidget(ctx, &buf, widget); err != nil {
		s.log.ErrorContext(ctx, "Failed to render map snapshot", "id", req.ID, "error", err)
		return errorResponse(c, http.StatusBadGateway, MsgSnapshotFailed, nil)
	}

	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) getTheme(c echo.Context) error {
	return successResponse(c, s.theme, "")
}

func (s *Server) healthz(c echo.Context) error {
	ctx := c.Request().Context()
	s.log.DebugContext(ctx, "Performing health checks...")

	status, body := http.StatusOK, "OK"
	if s.health != nil {
		if err := s.health(ctx); err != nil {
			s.log.WarnContext(ctx, "Health check failed", "error", err)
			status, body = http.StatusServiceUnavailable, "DB ping failed"
		}
	}

	s.log.DebugContext(ctx, "Health checks completed", "status", status)
	return c.String(status, body)
}
