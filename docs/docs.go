// Package docs registers the OpenAPI description served under /swagger.
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
        "/health": {
            "get": {
                "description": "Checks connectivity to the metadata store.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/invoices": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Validates, transforms, enriches and stores a document with its attachments.\nIn test mode the pipeline runs but nothing is persisted.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["invoices"],
                "summary": "Submit an invoice document",
                "parameters": [
                    {"enum": ["normal", "test"], "type": "string", "default": "normal", "description": "normal or test", "name": "mode", "in": "query"},
                    {"type": "boolean", "default": true, "description": "stamp the PDF", "name": "enrich", "in": "query"},
                    {"description": "document bundle", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.SubmitRequest"}}
                ],
                "responses": {
                    "200": {"description": "test mode outcome", "schema": {"$ref": "#/definitions/service.SubmitResult"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.SubmitResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/invoices/{token}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the selected parts. Without any selector only metadata is returned.",
                "produces": ["application/json"],
                "tags": ["invoices"],
                "summary": "Retrieve an invoice",
                "parameters": [
                    {"type": "string", "description": "invoice token", "name": "token", "in": "path", "required": true},
                    {"type": "boolean", "description": "include metadata", "name": "metadata", "in": "query"},
                    {"type": "boolean", "description": "include structured payload", "name": "payload", "in": "query"},
                    {"type": "boolean", "description": "include the submitted PDF", "name": "original", "in": "query"},
                    {"type": "boolean", "description": "include the stamped PDF", "name": "enriched", "in": "query"},
                    {"type": "boolean", "description": "include the detached seal", "name": "signature", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Retrieved"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Deletes the record, its original, attachments and all stored content.",
                "produces": ["application/json"],
                "tags": ["invoices"],
                "summary": "Erase a trashed invoice",
                "parameters": [
                    {"type": "string", "description": "invoice token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.EraseResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/invoices/{token}/status": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["invoices"],
                "summary": "Change the lifecycle status",
                "parameters": [
                    {"type": "string", "description": "invoice token", "name": "token", "in": "path", "required": true},
                    {"description": "target status", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.StatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Meta"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "handler.SubmitRequest": {
            "type": "object",
            "properties": {
                "document": {"$ref": "#/definitions/model.DocumentRecord"},
                "attachments": {"type": "array", "items": {"$ref": "#/definitions/model.DocumentRecord"}}
            }
        },
        "handler.StatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["open", "done", "trashed"]}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "issues": {"type": "array", "items": {"$ref": "#/definitions/model.Issue"}}
                    }
                }
            }
        },
        "model.Coding": {
            "type": "object",
            "properties": {
                "system": {"type": "string"},
                "code": {"type": "string"},
                "display": {"type": "string"}
            }
        },
        "model.ContentSlot": {
            "type": "object",
            "properties": {
                "contentType": {"type": "string"},
                "title": {"type": "string"},
                "data": {"type": "string", "format": "byte"},
                "url": {"type": "string"},
                "size": {"type": "integer"}
            }
        },
        "model.Issue": {
            "type": "object",
            "properties": {
                "severity": {"type": "string", "enum": ["fatal", "error", "warning", "information"]},
                "code": {"type": "string"},
                "message": {"type": "string"},
                "location": {"type": "string"}
            }
        },
        "model.Meta": {
            "type": "object",
            "properties": {
                "versionId": {"type": "integer"},
                "lastUpdated": {"type": "string", "format": "date-time"},
                "profile": {"type": "array", "items": {"type": "string"}},
                "tag": {"type": "array", "items": {"$ref": "#/definitions/model.Coding"}},
                "retention": {
                    "type": "object",
                    "properties": {
                        "changedDate": {"type": "string", "format": "date-time"},
                        "nextChangeDate": {"type": "string", "format": "date-time"}
                    }
                }
            }
        },
        "model.DocumentRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "meta": {"$ref": "#/definitions/model.Meta"},
                "type": {"$ref": "#/definitions/model.Coding"},
                "content": {"type": "array", "items": {"$ref": "#/definitions/model.ContentSlot"}}
            }
        },
        "service.SubmitResult": {
            "type": "object",
            "properties": {
                "outcome": {"type": "object", "properties": {"issue": {"type": "array", "items": {"$ref": "#/definitions/model.Issue"}}}},
                "transformed": {"$ref": "#/definitions/model.DocumentRecord"},
                "attachments": {"type": "array", "items": {"type": "object"}}
            }
        },
        "service.Retrieved": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "metadata": {"$ref": "#/definitions/model.DocumentRecord"},
                "payload": {"type": "object"},
                "originalPdf": {"type": "object"},
                "enrichedPdf": {"type": "object"},
                "signature": {"type": "string", "format": "byte"}
            }
        },
        "service.EraseResult": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "erased": {"type": "array", "items": {"type": "string"}},
                "erasedAt": {"type": "string", "format": "date-time"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Invoice Vault API",
	Description:      "Stores invoice documents, stamps and seals their PDF rendition and manages their retention lifecycle.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
