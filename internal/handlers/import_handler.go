package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// CatalogSource provides the catalog slug snapshots validation runs against.
type CatalogSource interface {
	BrandSlugs(ctx context.Context) ([]string, error)
	CategorySlugs(ctx context.Context) ([]string, error)
}

type ImportHandler struct {
	catalog  CatalogSource
	executor *importer.Executor
	logger   *logrus.Logger

	maxFileBytes    int64
	maxArchiveBytes int64
}

func NewImportHandler(catalog CatalogSource, executor *importer.Executor, logger *logrus.Logger, maxFileBytes, maxArchiveBytes int64) *ImportHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ImportHandler{
		catalog:         catalog,
		executor:        executor,
		logger:          logger,
		maxFileBytes:    maxFileBytes,
		maxArchiveBytes: maxArchiveBytes,
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/products/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.ProductImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 22)
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Product Import Instructions")

	f.SetCellValue("Instructions", "A3", "MULTI-VALUE COLUMNS:")
	f.SetCellValue("Instructions", "A4", "Specification and feature columns take multiple entries separated by | (pipe).")
	f.SetCellValue("Instructions", "A5", "The four spec columns are zipped positionally: entry N takes label/value N from each column.")
	f.SetCellValue("Instructions", "A6", "All present spec columns must have the same number of entries, otherwise the row is rejected.")

	f.SetCellValue("Instructions", "A8", "REFERENCES:")
	f.SetCellValue("Instructions", "A9", "category_slug and brand_slug that do not exist yet are auto-created with placeholder names.")
	f.SetCellValue("Instructions", "A10", "Fill the placeholder records in afterwards from the admin UI.")

	f.SetCellValue("Instructions", "A12", "IMAGES:")
	f.SetCellValue("Instructions", "A13", "Upload a zip alongside the sheet with entries named products/<slug>/<N>.<ext>")
	f.SetCellValue("Instructions", "A14", "(jpg, jpeg, png, webp, avif, svg). Image 1 becomes the main image.")

	f.SetCellValue("Instructions", "A16", "Column Definitions:")
	f.SetCellValue("Instructions", "A17", "Column")
	f.SetCellValue("Instructions", "B17", "Description")
	f.SetCellValue("Instructions", "C17", "Required")
	f.SetCellValue("Instructions", "D17", "Type")
	f.SetCellValue("Instructions", "E17", "Example")

	for i, col := range template.Columns {
		row := i + 18
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 70)
	f.SetColWidth("Instructions", "C", "C", 12)
	f.SetColWidth("Instructions", "D", "D", 12)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.xlsx")

	f.Write(c.Writer)
}

// ValidateImport decodes and validates an upload without writing anything,
// returning the full per-row report for the review step.
// POST /api/v1/products/import/validate
func (h *ImportHandler) ValidateImport(c *gin.Context) {
	verdicts, summary, ok := h.prepareBatch(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"summary":  summary,
		"verdicts": verdicts,
	})
}

// ImportProducts validates and executes an import, streaming one event per
// state change as Server-Sent Events until the terminal complete event.
// POST /api/v1/products/import
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	opts := models.ImportOptions{
		OverwriteExisting: c.DefaultPostForm("overwriteExisting", "false") == "true",
		SkipErrors:        c.DefaultPostForm("skipErrors", "false") == "true",
	}

	verdicts, _, ok := h.prepareBatch(c)
	if !ok {
		return
	}

	// skipErrors removes error rows from the batch entirely; without it the
	// executor reports each one as skipped.
	if opts.SkipErrors {
		kept := make([]models.ValidationVerdict, 0, len(verdicts))
		for _, v := range verdicts {
			if v.Status != models.VerdictError {
				kept = append(kept, v)
			}
		}
		verdicts = kept
	}

	events := h.executor.Execute(c.Request.Context(), verdicts, opts)
	h.streamEvents(c, events)
}

// ImportImages is the image-only mode: an archive with no table. Existing
// products get their images replaced; slug folders without a product are
// reported as orphaned.
// POST /api/v1/products/import/images
func (h *ImportHandler) ImportImages(c *gin.Context) {
	images, ok := h.readArchive(c, true)
	if !ok {
		return
	}

	events := h.executor.AttachImages(c.Request.Context(), images)
	h.streamEvents(c, events)
}

// prepareBatch reads the table (and optional archive) from the multipart form,
// decodes, and validates against the current catalog. A decode-level failure
// writes the error response and returns ok=false; row-level findings flow
// through as verdicts.
func (h *ImportHandler) prepareBatch(c *gin.Context) ([]models.ValidationVerdict, models.ValidationSummary, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload a CSV or Excel file",
			},
		})
		return nil, models.ValidationSummary{}, false
	}
	defer file.Close()

	rows, err := h.decodeRows(header.Filename, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "PARSE_ERROR",
				Message: err.Error(),
			},
		})
		return nil, models.ValidationSummary{}, false
	}

	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "EMPTY_FILE",
				Message: "The file contains no data rows",
			},
		})
		return nil, models.ValidationSummary{}, false
	}

	images, ok := h.readArchive(c, false)
	if !ok {
		return nil, models.ValidationSummary{}, false
	}

	ctx := c.Request.Context()
	brands, err := h.catalog.BrandSlugs(ctx)
	if err != nil {
		h.internalError(c, "failed to load brands", err)
		return nil, models.ValidationSummary{}, false
	}
	categories, err := h.catalog.CategorySlugs(ctx)
	if err != nil {
		h.internalError(c, "failed to load categories", err)
		return nil, models.ValidationSummary{}, false
	}

	verdicts, summary := importer.Validate(rows, images, importer.NewKnownRefs(brands, categories))
	return verdicts, summary, true
}

// decodeRows picks the decoder by file extension.
func (h *ImportHandler) decodeRows(filename string, file multipart.File) ([]models.ParsedRow, error) {
	limited := io.LimitReader(file, h.maxFileBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > h.maxFileBytes {
		return nil, fmt.Errorf("file exceeds the %d MB limit", h.maxFileBytes/(1024*1024))
	}

	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return importer.DecodeCSV(bytes.NewReader(data))
	case strings.HasSuffix(lower, ".xlsx"):
		return importer.DecodeXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("only CSV and XLSX files are supported")
	}
}

// readArchive reads the optional (or required) images zip from the form.
func (h *ImportHandler) readArchive(c *gin.Context, required bool) (map[string]models.ImageGroup, bool) {
	file, _, err := c.Request.FormFile("images")
	if err != nil {
		if required {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "ARCHIVE_REQUIRED",
					Message: "Please upload an image archive",
				},
			})
			return nil, false
		}
		return map[string]models.ImageGroup{}, true
	}
	defer file.Close()

	limited := io.LimitReader(file, h.maxArchiveBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		h.internalError(c, "failed to read archive", err)
		return nil, false
	}
	if int64(len(data)) > h.maxArchiveBytes {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "ARCHIVE_TOO_LARGE",
				Message: fmt.Sprintf("archive exceeds the %d MB limit", h.maxArchiveBytes/(1024*1024)),
			},
		})
		return nil, false
	}

	images, err := importer.ResolveArchiveImages(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "ARCHIVE_ERROR",
				Message: err.Error(),
			},
		})
		return nil, false
	}

	return images, true
}

// streamEvents forwards the executor's event channel as SSE. The channel is
// unbuffered, so the executor naturally paces itself to this writer.
func (h *ImportHandler) streamEvents(c *gin.Context, events <-chan importer.ImportEvent) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.internalError(c, "streaming not supported", nil)
		return
	}

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.WithError(err).Error("failed to marshal import event")
			continue
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.EventType(), data)
		flusher.Flush()
	}
}

func (h *ImportHandler) internalError(c *gin.Context, message string, err error) {
	if err != nil {
		h.logger.WithError(err).Error(message)
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: message,
		},
	})
}
