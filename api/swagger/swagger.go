package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ArchiHub API",
        "description": "Student community platform: academic progress, photo feed, catedra ratings and study resources",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Accounts and sessions"},
        {"name": "Subjects", "description": "Academic catalog"},
        {"name": "Progress", "description": "Per-user TP states and completion"},
        {"name": "Feed", "description": "Photo feed and likes"},
        {"name": "Ratings", "description": "Catedra reviews and ranking"},
        {"name": "Resources", "description": "Study materials"},
        {"name": "Users", "description": "Profiles and portfolios"},
        {"name": "Reports", "description": "Asynchronous progress exports"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email taken"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh tokens",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List subjects",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Subjects"],
                "summary": "Create subject (admin)",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/subjects/{id}/catedras": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List catedras of a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{id}/tps": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List TPs of a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{id}/progress": {
            "get": {
                "tags": ["Progress"],
                "summary": "Caller's progress for a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Progress"}}
                }
            }
        },
        "/tps/{id}/state": {
            "get": {
                "tags": ["Progress"],
                "summary": "Caller's state for a TP",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Progress"],
                "summary": "Set caller's state for a TP",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetStateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid state"}
                }
            }
        },
        "/progress/overview": {
            "get": {
                "tags": ["Progress"],
                "summary": "Per-subject progress for a study year",
                "parameters": [
                    {"name": "year", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/posts": {
            "get": {
                "tags": ["Feed"],
                "summary": "List feed",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Feed"],
                "summary": "Publish post",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "image", "in": "formData", "required": true, "type": "file"},
                    {"name": "subject_id", "in": "formData", "required": true, "type": "integer"},
                    {"name": "caption", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Empty image"}
                }
            }
        },
        "/posts/{id}/like": {
            "post": {
                "tags": ["Feed"],
                "summary": "Toggle like",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LikeResult"}}
                }
            }
        },
        "/posts/{id}/image": {
            "get": {
                "tags": ["Feed"],
                "summary": "Get post image",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/catedras/{id}/ratings": {
            "post": {
                "tags": ["Ratings"],
                "summary": "Submit rating",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRatingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already rated"}
                }
            },
            "delete": {
                "tags": ["Ratings"],
                "summary": "Retract rating",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not rated"}
                }
            }
        },
        "/catedras/{id}/ratings/summary": {
            "get": {
                "tags": ["Ratings"],
                "summary": "Rating summary",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RatingSummary"}}
                }
            }
        },
        "/ranking/catedras": {
            "get": {
                "tags": ["Ratings"],
                "summary": "Catedra ranking",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/subjects/{id}/resources": {
            "get": {
                "tags": ["Resources"],
                "summary": "List resources of a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Resources"],
                "summary": "Create resource",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "title", "in": "formData", "required": true, "type": "string"},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "file", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/resources/{id}/download": {
            "get": {
                "tags": ["Resources"],
                "summary": "Download resource file",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/{id}/posts": {
            "get": {
                "tags": ["Users"],
                "summary": "Get portfolio",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Request progress report",
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "year": {"type": "integer"},
                "current_catedra": {"type": "string"}
            },
            "required": ["email", "password", "name", "year"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "SetStateRequest": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["pending", "submitted", "approved"]},
                "grade": {"type": "number"}
            },
            "required": ["state"]
        },
        "SubmitRatingRequest": {
            "type": "object",
            "properties": {
                "score": {"type": "integer", "minimum": 1, "maximum": 5},
                "comment": {"type": "string"}
            },
            "required": ["score"]
        },
        "Progress": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "integer"},
                "total_tps": {"type": "integer"},
                "approved_count": {"type": "integer"},
                "ratio": {"type": "number"},
                "items": {"type": "array", "items": {"type": "object"}}
            }
        },
        "RatingSummary": {
            "type": "object",
            "properties": {
                "catedra_id": {"type": "integer"},
                "average": {"type": "number"},
                "review_count": {"type": "integer"}
            }
        },
        "LikeResult": {
            "type": "object",
            "properties": {
                "liked": {"type": "boolean"},
                "like_count": {"type": "integer"}
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
