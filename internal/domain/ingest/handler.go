package ingest

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hri/hri/internal/domain/mapping"
	"github.com/hri/hri/internal/platform/filestore"
	"github.com/hri/hri/pkg/pagination"
)

// Handler exposes the upload, processing and log endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the file ingestion routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	files := api.Group("/files")
	files.POST("/upload/preview", h.UploadPreview)
	files.POST("/upload/process", h.Process)
	files.GET("/logs", h.ListLogs)
	files.GET("/preview", h.Download)
	files.GET("/data/:file_id", h.GetFileData)
}

// UploadPreview accepts a multipart file, stores it, and returns the
// candidate mapping with sample rows for the user to confirm.
func (h *Handler) UploadPreview(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer src.Close()

	result, err := h.svc.Preview(c.Request().Context(), fh.Filename, src)
	if err != nil {
		return previewError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type processRequest struct {
	FileName string          `json:"file_name"`
	Mapping  mapping.Mapping `json:"mapping"`
}

// Process applies the confirmed mapping to the stored file and loads the
// normalized records in one transaction.
func (h *Handler) Process(c echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.FileName == "" || len(req.Mapping) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file_name or mapping")
	}

	result, err := h.svc.Process(c.Request().Context(), req.FileName, req.Mapping)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedFileType),
			errors.Is(err, ErrEmptyFile),
			errors.Is(err, ErrNoHeaders):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, filestore.ErrFileNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "file not found on server")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, result)
}

// ListLogs returns upload log entries, newest first.
func (h *Handler) ListLogs(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLogs(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// Download streams a stored source file back to the caller.
func (h *Handler) Download(c echo.Context) error {
	filename := c.QueryParam("filename")
	if filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing filename")
	}

	f, err := h.svc.OpenStored(filename)
	if err != nil {
		if errors.Is(err, filestore.ErrFileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Stream(http.StatusOK, contentType, f)
}

// GetFileData returns every normalized record loaded from one file.
func (h *Handler) GetFileData(c echo.Context) error {
	fileID, err := strconv.ParseInt(c.Param("file_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file id")
	}

	data, err := h.svc.GetFileData(c.Request().Context(), fileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no data found for this file")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, data)
}

func previewError(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedFileType),
		errors.Is(err, ErrEmptyFile),
		errors.Is(err, ErrNoHeaders):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		// Mapping-service and storage failures surface as preview
		// failures with the underlying reason.
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
