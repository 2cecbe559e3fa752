package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	labeler "github.com/FrenchMajesty/comment-labeler"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	apiKeyHeader     = "X-API-Key"
	headerRowsTotal  = "X-Rows-Total"
	headerRowsFailed = "X-Rows-Failed"
	headerRunID      = "X-Run-ID"

	// multipartMemory is how much of an upload is held in memory before spilling to disk
	multipartMemory = 8 << 20
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// PromptResponse carries the instruction template
type PromptResponse struct {
	Template string `json:"template"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDefaultPrompt(c *gin.Context) {
	c.JSON(http.StatusOK, PromptResponse{Template: s.cfg.Prompt.Template})
}

// handleLabel runs one labeling pass over an uploaded spreadsheet and returns the results as CSV
func (s *Server) handleLabel(c *gin.Context) {
	limit := s.cfg.Server.MaxUploadBytes
	if c.Request.ContentLength > limit {
		s.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.tooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid form: %v", err)})
		return
	}

	apiKey := c.Request.FormValue("api_key")
	if apiKey == "" {
		apiKey = c.GetHeader(apiKeyHeader)
	}

	prompt := s.cfg.Prompt.Template
	if values, ok := c.Request.PostForm["prompt"]; ok && len(values) > 0 {
		prompt = values[0]
	}

	sheet := c.Request.FormValue("sheet")
	if sheet == "" {
		sheet = s.cfg.Input.Sheet
	}

	file, err := uploadedFile(c.Request, sheet)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))

	cfg := s.cfg.LabelerConfig(apiKey, file, prompt)
	cfg.NewClient = s.newClient
	cfg.Logger = logger
	cfg.Reporter = labeler.Reporters{labeler.NewLogReporter(logger), s.recorder}

	table, err := labeler.Run(c.Request.Context(), cfg)
	if err != nil {
		if labeler.IsInputError(err) {
			logger.Warn("labeling request rejected", zap.Error(err))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		logger.Error("labeling run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	data, err := table.CSV()
	if err != nil {
		logger.Error("failed to export results", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to export results"})
		return
	}

	logger.Info("labeling run completed",
		zap.Int("rows", table.Len()),
		zap.Int("failed", table.Failed()),
	)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", labeler.DefaultOutputFilename))
	c.Header(headerRowsTotal, strconv.Itoa(table.Len()))
	c.Header(headerRowsFailed, strconv.Itoa(table.Failed()))
	c.Header(headerRunID, runID)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (s *Server) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
		Error: fmt.Sprintf("upload exceeds %d bytes", s.cfg.Server.MaxUploadBytes),
	})
}

// uploadedFile reads the "file" form field. A request without one yields nil.
func uploadedFile(r *http.Request, sheet string) (*labeler.File, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q: %w", header.Filename, err)
	}

	return &labeler.File{Name: header.Filename, Data: data, Sheet: sheet}, nil
}
