package handler

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"docsign/internal/model"
	"docsign/internal/reconcile"
	"docsign/internal/service"
	"docsign/internal/storage"
)

// UploadResponse is returned by POST /api/documents.
type UploadResponse struct {
	Message  string          `json:"message"`
	ID       int64           `json:"id"`
	Document *model.Document `json:"document"`
}

// DeleteResponse is returned by DELETE /api/documents/{id}.
type DeleteResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// PurgeResponse is returned by DELETE /api/documents.
type PurgeResponse struct {
	Deleted int `json:"deleted"`
}

// SignRequest carries the signature image as base64 or as a data URL.
type SignRequest struct {
	Signature string `json:"signature"`
}

// UploadDocument godoc
// @Summary Upload a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Param category formData string true "Category"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := docSvc.Add(c.UserContext(), f, fh.Filename, c.FormValue("category"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(UploadResponse{
			Message:  "document stored",
			ID:       doc.ID,
			Document: doc,
		})
	}
}

// ListDocuments godoc
// @Summary List every document, newest first
// @Tags documents
// @Produce json
// @Success 200 {array} model.Document
// @Failure 500 {object} errorPayload
// @Router /api/documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := docSvc.ListAll(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(docs)
	}
}

// ListRecent godoc
// @Summary List the most recent documents across categories
// @Tags documents
// @Produce json
// @Param limit query int false "Maximum number of documents" default(4)
// @Success 200 {array} model.Document
// @Failure 400 {object} errorPayload
// @Router /api/documents/recent [get]
func ListRecent(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "4"))
		if err != nil || limit <= 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		docs, err := docSvc.ListRecent(c.UserContext(), limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(docs)
	}
}

// ListByCategory godoc
// @Summary List documents of one category, newest first
// @Tags documents
// @Produce json
// @Param category path string true "Category"
// @Success 200 {array} model.Document
// @Router /api/documents/category/{category} [get]
func ListByCategory(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category, err := url.PathUnescape(c.Params("category"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CATEGORY", "invalid category")
		}

		docs, err := docSvc.ListByCategory(c.UserContext(), category)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(docs)
	}
}

// GetDocument godoc
// @Summary Get document metadata
// @Tags documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// OpenFile godoc
// @Summary Preview a stored file by name
// @Tags files
// @Produce octet-stream
// @Param filename path string true "Stored filename"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/documents/files/{filename} [get]
func OpenFile(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("filename"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "UNSAFE_FILENAME", "filename is not allowed")
		}
		rc, info, err := docSvc.Open(c.UserContext(), name)
		if err != nil {
			return writeServiceError(c, err)
		}
		return sendObject(c, rc, info)
	}
}

// OpenDocumentFile godoc
// @Summary Preview the file of a document
// @Tags files
// @Produce octet-stream
// @Param id path int true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /api/documents/{id}/file [get]
func OpenDocumentFile(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, info, err := docSvc.OpenByID(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return sendObject(c, rc, info)
	}
}

// SignDocument godoc
// @Summary Mark a document signed and store its signature image
// @Tags documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body SignRequest false "Signature as base64 or data URL"
// @Success 200 {object} model.SignResult
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/documents/{id}/sign [post]
func SignDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req SignRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}
		sig, err := decodeSignature(req.Signature)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SIGNATURE", "signature must be base64 or a data URL")
		}

		res, err := docSvc.Sign(c.UserContext(), id, sig)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetSignature godoc
// @Summary Download the signature image of a document
// @Tags files
// @Produce png
// @Param id path int true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /api/documents/{id}/signature [get]
func GetSignature(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, info, err := docSvc.Signature(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return sendObject(c, rc, info)
	}
}

// DeleteDocument godoc
// @Summary Delete a document and its files
// @Tags documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} DeleteResponse
// @Failure 404 {object} errorPayload
// @Router /api/documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		existed, err := docSvc.Delete(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !existed {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		}
		return c.JSON(DeleteResponse{Message: fmt.Sprintf("document %d deleted", id), ID: id})
	}
}

// PurgeDocuments godoc
// @Summary Delete every document
// @Tags documents
// @Produce json
// @Success 200 {object} PurgeResponse
// @Failure 500 {object} errorPayload
// @Router /api/documents [delete]
func PurgeDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := docSvc.PurgeAll(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(PurgeResponse{Deleted: n})
	}
}

// Diagnostics godoc
// @Summary List the files present in the store
// @Tags diagnostics
// @Produce json
// @Success 200 {object} model.StoreScan
// @Router /api/documents/diagnostics [get]
func Diagnostics(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(docSvc.ScanStore(c.UserContext()))
	}
}

// Reconcile godoc
// @Summary Compare registry rows with stored files
// @Tags diagnostics
// @Produce json
// @Success 200 {object} reconcile.Report
// @Failure 500 {object} errorPayload
// @Router /api/documents/diagnostics/reconcile [get]
func Reconcile(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := reconcile.Run(c.UserContext(), docSvc)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(rep)
	}
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeSignature accepts raw base64 or a data URL such as "data:image/png;base64,....".
// An empty value yields no bytes.
func decodeSignature(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data url")
		}
		s = payload
	}
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// sendObject streams a stored file inline so browsers can preview it. The stream is
// closed by the response writer.
func sendObject(c *fiber.Ctx, rc io.ReadCloser, info storage.ObjectInfo) error {
	c.Set(fiber.HeaderContentType, info.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", info.Name))
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.SendStream(rc, int(info.Size))
}
