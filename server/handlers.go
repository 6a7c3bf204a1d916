package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"opsdashboard/consolidation"
	"opsdashboard/exporting"
	"opsdashboard/importer"
	"opsdashboard/reporting"
)

// consolidateRequest selects two uploaded datasets for a consolidation run.
type consolidateRequest struct {
	ProductionID   string `json:"production_id" binding:"required"`
	ShippingID     string `json:"shipping_id" binding:"required"`
	IncludeFlagged bool   `json:"include_flagged"`
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUploadProduction accepts a production spreadsheet upload.
func (s *Server) handleUploadProduction(c *gin.Context) {
	s.handleUpload(c, DatasetProduction, importer.LoadProductionFile)
}

// handleUploadShipping accepts a shipping spreadsheet upload.
func (s *Server) handleUploadShipping(c *gin.Context) {
	s.handleUpload(c, DatasetShipping, importer.LoadShippingFile)
}

// handleUpload stores the uploaded file in a temp dir under its original
// name (the loader records it as source_file), loads it and registers the
// dataset.
func (s *Server) handleUpload(c *gin.Context, kind string, load func(path, sheet string) ([]consolidation.RawRow, error)) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if header.Size > s.config.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds upload limit of %d bytes", s.config.MaxUploadBytes),
		})
		return
	}

	tempDir, err := os.MkdirTemp("", "opsdashboard-upload-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage upload"})
		return
	}
	defer os.RemoveAll(tempDir)

	tempPath := filepath.Join(tempDir, filepath.Base(header.Filename))
	if err := c.SaveUploadedFile(header, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage upload"})
		return
	}

	rows, err := load(tempPath, c.PostForm("sheet"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset := s.store.PutDataset(kind, filepath.Base(header.Filename), rows)
	c.JSON(http.StatusCreated, dataset)
}

// handleConsolidate runs the consolidation pipeline over two uploaded
// datasets and stores the result.
func (s *Server) handleConsolidate(c *gin.Context) {
	var req consolidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	production, err := s.store.Dataset(req.ProductionID, DatasetProduction)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	shipping, err := s.store.Dataset(req.ShippingID, DatasetShipping)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}

	result, err := consolidation.Consolidate(production.Rows, shipping.Rows, req.IncludeFlagged)
	if err != nil {
		// Only a broken loader reaches this branch (missing source
		// annotations); row-level defects are flagged, not errors.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	run := s.store.PutRun(result, req.IncludeFlagged)
	c.JSON(http.StatusCreated, gin.H{
		"run_id":            run.ID,
		"consolidated_rows": len(result.Consolidated),
		"flagged_rows":      len(result.FlaggedRows),
		"conflict_rows":     len(result.ConflictRows),
		"include_flagged":   run.IncludeFlagged,
	})
}

// handleConsolidated returns the consolidated table of a run.
func (s *Server) handleConsolidated(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": run.Result.Consolidated})
}

// handleFlagged returns the rows needing manual review.
func (s *Server) handleFlagged(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": run.Result.FlaggedRows})
}

// handleConflicts returns the cross-source conflict records.
func (s *Server) handleConflicts(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": run.Result.ConflictRows})
}

// handleSummary returns the weekly summary for the anchor date.
func (s *Server) handleSummary(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	anchor, ok := s.anchorDate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.reporting.WeeklySummary(run.Result.Consolidated, anchor))
}

// handleDrillDownByLine returns issue rows for one production line.
func (s *Server) handleDrillDownByLine(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	anchor, ok := s.anchorDate(c)
	if !ok {
		return
	}
	line := c.Query("line")
	if line == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing line parameter"})
		return
	}
	rows := s.reporting.DrillDownByLine(run.Result.Consolidated, line, anchor)
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// handleDrillDownByCategory returns issue rows for one issue category.
func (s *Server) handleDrillDownByCategory(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	anchor, ok := s.anchorDate(c)
	if !ok {
		return
	}
	category := c.Query("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing category parameter"})
		return
	}
	includePrevious := c.Query("include_previous") == "true"
	rows := s.reporting.DrillDownByCategory(run.Result.Consolidated, category, anchor, includePrevious)
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// handleExportSummaryCSV downloads the weekly summary as CSV.
func (s *Server) handleExportSummaryCSV(c *gin.Context) {
	s.exportSummary(c, exporting.FormatCSV)
}

// handleExportSummaryXLSX downloads the weekly summary as an XLSX workbook.
func (s *Server) handleExportSummaryXLSX(c *gin.Context) {
	s.exportSummary(c, exporting.FormatExcel)
}

// exportSummary renders the weekly summary in the requested format.
func (s *Server) exportSummary(c *gin.Context, format exporting.ExportFormat) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	anchor, ok := s.anchorDate(c)
	if !ok {
		return
	}
	summary := s.reporting.WeeklySummary(run.Result.Consolidated, anchor)

	var (
		payload     []byte
		err         error
		contentType string
		fileName    string
	)
	switch format {
	case exporting.FormatExcel:
		payload, err = s.exporter.WeeklySummaryXLSX(summary)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		fileName = fmt.Sprintf("weekly_summary_%s.xlsx", summary.WeekStart.Format("2006-01-02"))
	default:
		payload, err = s.exporter.WeeklySummaryCSV(summary)
		contentType = "text/csv"
		fileName = fmt.Sprintf("weekly_summary_%s.csv", summary.WeekStart.Format("2006-01-02"))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, contentType, payload)
}

// handleExportDrillDownCSV downloads a drill-down view as CSV. Either a
// line or a category parameter selects the view.
func (s *Server) handleExportDrillDownCSV(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	anchor, ok := s.anchorDate(c)
	if !ok {
		return
	}

	var rows []reporting.DrillDownRow
	switch {
	case c.Query("line") != "":
		rows = s.reporting.DrillDownByLine(run.Result.Consolidated, c.Query("line"), anchor)
	case c.Query("category") != "":
		includePrevious := c.Query("include_previous") == "true"
		rows = s.reporting.DrillDownByCategory(run.Result.Consolidated, c.Query("category"), anchor, includePrevious)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing line or category parameter"})
		return
	}

	payload, err := s.exporter.DrillDownCSV(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="drilldown.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// lookupRun resolves the :id route parameter to a stored run.
func (s *Server) lookupRun(c *gin.Context) (*Run, bool) {
	run, err := s.store.Run(c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return nil, false
	}
	return run, true
}

// anchorDate parses the required anchor query parameter (YYYY-MM-DD).
func (s *Server) anchorDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("anchor")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing anchor parameter (YYYY-MM-DD)"})
		return time.Time{}, false
	}
	anchor, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid anchor date %q", raw)})
		return time.Time{}, false
	}
	return anchor, true
}

// respondStoreError maps store errors onto HTTP statuses.
func (s *Server) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrDatasetNotFound), errors.Is(err, ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDatasetKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
