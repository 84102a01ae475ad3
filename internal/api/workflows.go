// Package api contains the HTTP handlers for the PDF workflow service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"pdfworkflow/internal/logging"
	"pdfworkflow/internal/pipeline"
	"pdfworkflow/internal/repository"
	"pdfworkflow/internal/services"
	"pdfworkflow/pkg/models"
)

const defaultWorkflowName = "default_workflow"

// Server holds the dependencies for the API server.
type Server struct {
	Runner *services.Runner
	Logger *logging.Logger
}

// NewServer creates a new Server.
func NewServer(runner *services.Runner, logger *logging.Logger) *Server {
	return &Server{Runner: runner, Logger: logger}
}

// RegisterRoutes mounts all workflow routes on e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/", s.HandleRoot)
	e.GET("/health", s.HandleHealth)
	e.POST("/workflow/run", s.RunWorkflow)
	e.POST("/workflow/run/sync", s.RunWorkflowSync)
	e.GET("/workflow/status/:id", s.GetWorkflowStatus)
	e.GET("/workflow/active", s.GetActiveWorkflows)
	e.GET("/openapi.yaml", s.HandleOpenAPISpec)
	e.GET("/docs", s.HandleSwaggerUI)
}

// submission is a parsed multipart workflow request.
type submission struct {
	document       models.Document
	workflowName   string
	additionalData map[string]any
	options        pipeline.Options
}

// RunWorkflow launches a workflow in async mode and returns the run
// identifier immediately.
// (POST /workflow/run)
func (s *Server) RunWorkflow(c echo.Context) error {
	sub, err := s.parseSubmission(c)
	if err != nil {
		return err
	}

	run, err := s.Runner.Submit(c.Request().Context(), sub.document, sub.workflowName,
		sub.additionalData, sub.options, services.ModeAsync)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to submit workflow: "+err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":        "workflow started",
		"workflow_name": run.WorkflowName,
		"workflow_id":   run.ID,
	})
}

// RunWorkflowSync executes a workflow synchronously and returns the terminal
// run snapshot, including the load receipt or the error text.
// (POST /workflow/run/sync)
func (s *Server) RunWorkflowSync(c echo.Context) error {
	sub, err := s.parseSubmission(c)
	if err != nil {
		return err
	}

	run, err := s.Runner.Submit(c.Request().Context(), sub.document, sub.workflowName,
		sub.additionalData, sub.options, services.ModeSync)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to run workflow: "+err.Error())
	}

	return c.JSON(http.StatusOK, run)
}

// GetWorkflowStatus returns the current snapshot of one run.
// (GET /workflow/status/:id)
func (s *Server) GetWorkflowStatus(c echo.Context) error {
	id := c.Param("id")

	run, err := s.Runner.Status(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found: "+id)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, run)
}

// GetActiveWorkflows returns all runs still in PENDING or RUNNING state.
// (GET /workflow/active)
func (s *Server) GetActiveWorkflows(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Runner.Active())
}

// parseSubmission reads the multipart form of a run request. Malformed
// requests surface as 400 errors.
func (s *Server) parseSubmission(c echo.Context) (*submission, error) {
	fileHeader, err := c.FormFile("pdf_file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "pdf_file is required")
	}
	if fileHeader.Filename == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "pdf_file must have a valid filename")
	}
	if fileHeader.Header.Get("Content-Type") == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "pdf_file must have a content type")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to open pdf_file: "+err.Error())
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read pdf_file: "+err.Error())
	}

	workflowName := c.FormValue("workflow_name")
	if workflowName == "" {
		workflowName = defaultWorkflowName
	}

	var additionalData map[string]any
	if raw := c.FormValue("additional_data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &additionalData); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "additional_data must be a JSON object: "+err.Error())
		}
	}

	var opts pipeline.Options
	if raw := c.FormValue("analyze"); raw != "" {
		analyze, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "analyze must be a boolean")
		}
		opts.Analyze = analyze
	}

	return &submission{
		document: models.Document{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Content:     content,
		},
		workflowName:   workflowName,
		additionalData: additionalData,
		options:        opts,
	}, nil
}
