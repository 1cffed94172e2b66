// Package docs holds the OpenAPI template served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/documents": {
            "get": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List every document, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Document"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Upload a document",
                "parameters": [
                    {"type": "file", "description": "Document file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Category", "name": "category", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Delete every document",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PurgeResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/documents/recent": {
            "get": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List the most recent documents across categories",
                "parameters": [
                    {"type": "integer", "default": 4, "description": "Maximum number of documents", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Document"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/documents/category/{category}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List documents of one category, newest first",
                "parameters": [
                    {"type": "string", "description": "Category", "name": "category", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Document"}}}
                }
            }
        },
        "/api/documents/diagnostics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "List the files present in the store",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.StoreScan"}}
                }
            }
        },
        "/api/documents/diagnostics/reconcile": {
            "get": {
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Compare registry rows with stored files",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/reconcile.Report"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/documents/files/{filename}": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Preview a stored file by name",
                "parameters": [
                    {"type": "string", "description": "Stored filename", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/documents/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Get document metadata",
                "parameters": [
                    {"type": "integer", "description": "Document ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Delete a document and its files",
                "parameters": [
                    {"type": "integer", "description": "Document ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.DeleteResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/documents/{id}/file": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Preview the file of a document",
                "parameters": [
                    {"type": "integer", "description": "Document ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/documents/{id}/sign": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Mark a document signed and store its signature image",
                "parameters": [
                    {"type": "integer", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"description": "Signature as base64 or data URL", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/handler.SignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SignResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/documents/{id}/signature": {
            "get": {
                "produces": ["image/png"],
                "tags": ["files"],
                "summary": "Download the signature image of a document",
                "parameters": [
                    {"type": "integer", "description": "Document ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Readiness probe, pings the registry database",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "handler.DeleteResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "handler.PurgeResponse": {
            "type": "object",
            "properties": {
                "deleted": {"type": "integer"}
            }
        },
        "handler.SignRequest": {
            "type": "object",
            "properties": {
                "signature": {"type": "string"}
            }
        },
        "handler.UploadResponse": {
            "type": "object",
            "properties": {
                "document": {"$ref": "#/definitions/model.Document"},
                "id": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.errorEnvelope"},
                "request_id": {"type": "string"}
            }
        },
        "model.Document": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "created_at": {"type": "string"},
                "filename": {"type": "string"},
                "id": {"type": "integer"},
                "signed": {"type": "boolean"},
                "storage_path": {"type": "string"}
            }
        },
        "model.SignResult": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "signature_error": {"type": "string"},
                "signature_saved": {"type": "boolean"},
                "signed": {"type": "boolean"}
            }
        },
        "model.StoreScan": {
            "type": "object",
            "properties": {
                "files": {"type": "array", "items": {"type": "string"}},
                "root_path": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "reconcile.Report": {
            "type": "object",
            "properties": {
                "file_count": {"type": "integer"},
                "missing_files": {"type": "array", "items": {"type": "string"}},
                "orphan_files": {"type": "array", "items": {"type": "string"}},
                "registry_count": {"type": "integer"},
                "root_path": {"type": "string"},
                "store_status": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Document Signing API",
	Description:      "Document registry with a local file store and signature capture.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
