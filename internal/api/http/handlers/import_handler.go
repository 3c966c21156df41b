package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/importer"
)

// ImportHandler exposes the bulk CSV import endpoint.
type ImportHandler struct {
	importer *importer.CSVImporter
}

// NewImportHandler constructs handler.
func NewImportHandler(csvImporter *importer.CSVImporter) *ImportHandler {
	return &ImportHandler{importer: csvImporter}
}

// ImportCSV handles POST /tickets/import. Expects a multipart upload with a
// "file" field.
func (h *ImportHandler) ImportCSV(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "file field is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "could not read upload")
	}
	defer file.Close()

	result, err := h.importer.Import(c.Context(), actorFrom(c), file)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
