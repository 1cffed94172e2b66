package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docsign/internal/http/middleware"
	"docsign/internal/service"
)

// RouteOptions tunes RegisterRoutes.
type RouteOptions struct {
	// FrameAncestors is the CSP frame-ancestors source list for file previews.
	FrameAncestors string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Fixed paths are registered before /:id so they are never parsed as IDs.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, opts RouteOptions) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	docs := app.Group("/api/documents")
	docs.Post("/", UploadDocument(docSvc))
	docs.Get("/", ListDocuments(docSvc))
	docs.Delete("/", PurgeDocuments(docSvc))

	docs.Get("/recent", ListRecent(docSvc))
	docs.Get("/category/:category", ListByCategory(docSvc))
	docs.Get("/diagnostics", Diagnostics(docSvc))
	docs.Get("/diagnostics/reconcile", Reconcile(docSvc))

	preview := middleware.AllowFraming(opts.FrameAncestors)
	docs.Get("/files/:filename", preview, OpenFile(docSvc))

	docs.Get("/:id", GetDocument(docSvc))
	docs.Get("/:id/file", preview, OpenDocumentFile(docSvc))
	docs.Get("/:id/signature", GetSignature(docSvc))
	docs.Post("/:id/sign", SignDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
}
