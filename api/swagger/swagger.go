package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Invigilation API",
        "description": "Assigns exam supervisors to sessions, stores rosters and renders exports.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Invigilation", "description": "Assignment runs and saved rosters"},
        {"name": "Invigilation Exports", "description": "CSV, XLSX and PDF roster exports"},
        {"name": "Admin", "description": "Service instrumentation"}
    ],
    "paths": {
        "/invigilation/generate": {
            "post": {
                "tags": ["Invigilation"],
                "summary": "Run the assignment engine over a JSON payload",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateRosterRequest"}}
                ],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error or no supervisors", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/upload": {
            "post": {
                "tags": ["Invigilation"],
                "summary": "Run the assignment engine over uploaded spreadsheets",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "supervisors", "in": "formData", "type": "file", "required": true},
                    {"name": "sessions", "in": "formData", "type": "file", "required": true},
                    {"name": "sections", "in": "formData", "type": "file"},
                    {"name": "level", "in": "formData", "type": "string"},
                    {"name": "layout", "in": "formData", "type": "string", "enum": ["long", "wide"]},
                    {"name": "specialtyMode", "in": "formData", "type": "string", "enum": ["deprioritize", "exclude"]},
                    {"name": "secondaryRule", "in": "formData", "type": "string", "enum": ["teacher", "grade_tier"]},
                    {"name": "supervisorsNeeded", "in": "formData", "type": "integer"},
                    {"name": "dailyCapacity", "in": "formData", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing columns or unreadable file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Upload too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/proposals/{id}": {
            "get": {
                "tags": ["Invigilation"],
                "summary": "Fetch an unsaved proposal",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Expired or unknown", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/rosters": {
            "get": {
                "tags": ["Invigilation"],
                "summary": "List saved rosters",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["DRAFT", "PUBLISHED"]},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "sort_order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Invigilation"],
                "summary": "Save a proposal as a draft roster",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveRosterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Proposal expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/rosters/{id}": {
            "get": {
                "tags": ["Invigilation"],
                "summary": "Get a roster with assignments, shortages, statistics and daily sheets",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Invigilation"],
                "summary": "Delete a draft roster",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Roster is published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/rosters/{id}/publish": {
            "patch": {
                "tags": ["Invigilation"],
                "summary": "Publish a draft roster",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/cache": {
            "delete": {
                "tags": ["Invigilation"],
                "summary": "Flush cached runs and proposals",
                "responses": {
                    "204": {"description": "Flushed"},
                    "503": {"description": "Run cache disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/rosters/{id}/exports": {
            "post": {
                "tags": ["Invigilation Exports"],
                "summary": "Queue a roster export",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Roster not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/exports/{jobId}": {
            "get": {
                "tags": ["Invigilation Exports"],
                "summary": "Export job status",
                "parameters": [{"name": "jobId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invigilation/exports/download/{token}": {
            "get": {
                "tags": ["Invigilation Exports"],
                "summary": "Download a finished export",
                "security": [],
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/pdf"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["Admin"],
                "summary": "Instrumentation snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SupervisorInput": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "specialty": {"type": "string"},
                "dailyCapacity": {"type": "integer"},
                "unavailableDates": {"type": "string"},
                "pool": {"type": "string", "enum": ["teacher", "section"]}
            }
        },
        "ExamSessionInput": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "subject": {"type": "string"},
                "grade": {"type": "string"},
                "section": {"type": "string"},
                "period": {"type": "string"},
                "supervisorsNeeded": {"type": "integer"}
            }
        },
        "SectionInput": {
            "type": "object",
            "required": ["grade", "section"],
            "properties": {
                "grade": {"type": "string"},
                "section": {"type": "string"}
            }
        },
        "PolicyOverrides": {
            "type": "object",
            "properties": {
                "specialtyMode": {"type": "string", "enum": ["deprioritize", "exclude"]},
                "secondaryRule": {"type": "string", "enum": ["teacher", "grade_tier"]},
                "dailyCapacity": {"type": "integer"},
                "sectionDailyCapacity": {"type": "integer"},
                "supervisorsNeeded": {"type": "integer"},
                "gradeTiers": {"type": "object", "additionalProperties": {"type": "integer"}},
                "defaultTier": {"type": "integer"},
                "specialtyAliases": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "GenerateRosterRequest": {
            "type": "object",
            "required": ["sessions"],
            "properties": {
                "supervisors": {"type": "array", "items": {"$ref": "#/definitions/SupervisorInput"}},
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/ExamSessionInput"}},
                "sections": {"type": "array", "items": {"$ref": "#/definitions/SectionInput"}},
                "level": {"type": "string"},
                "policy": {"$ref": "#/definitions/PolicyOverrides"}
            }
        },
        "SaveRosterRequest": {
            "type": "object",
            "required": ["proposalId", "name"],
            "properties": {
                "proposalId": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["kind", "format"],
            "properties": {
                "kind": {"type": "string", "enum": ["assignments", "shortages", "stats", "daily"]},
                "format": {"type": "string", "enum": ["csv", "xlsx", "pdf"]},
                "supervisor": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "locale": {"type": "string", "enum": ["en", "ar"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
