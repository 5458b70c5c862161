// Package docs registers the OpenAPI document of the modelyaml HTTP API with swag.
// Regenerate with `swag init -g cmd/modelyaml/docs.go -o docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List model definitions",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Store a model definition",
                "parameters": [{"in": "body", "name": "definition", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PutModelResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ValidateResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models/{org}/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Get a model definition",
                "parameters": [
                    {"type": "string", "description": "Organization", "name": "org", "in": "path", "required": true},
                    {"type": "string", "description": "Model name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Delete a model definition",
                "parameters": [
                    {"type": "string", "description": "Organization", "name": "org", "in": "path", "required": true},
                    {"type": "string", "description": "Model name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PutModelResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/resolve": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["resolve"],
                "summary": "Resolve a model for an environment",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ResolveRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/resolve/batch": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["resolve"],
                "summary": "Resolve several models at once",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        },
        "/validate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Validate a model definition",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ValidateResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Service status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 404},
                "error": {"type": "string", "example": "model not found: qwen/qwen3-8b"},
                "kind": {"type": "string", "example": "CycleDetected"}
            }
        },
        "types.ModelSummary": {
            "type": "object",
            "properties": {
                "base": {"type": "string", "example": "qwen/qwen3"},
                "concrete": {"type": "array", "items": {"type": "string"}},
                "id": {"type": "string", "example": "qwen/qwen3-8b"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelSummary"}}}
        },
        "types.Problem": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "default value must be a boolean"},
                "path": {"type": "string", "example": "customFields.0.defaultValue"}
            }
        },
        "types.PutModelResponse": {
            "type": "object",
            "properties": {
                "model": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "types.ResolveRequest": {
            "type": "object",
            "properties": {
                "capabilities": {"type": "object"},
                "model": {"type": "string", "example": "qwen/qwen3-8b"},
                "overrides": {"type": "object"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "cache_capacity": {"type": "integer", "example": 256},
                "cache_entries": {"type": "integer", "example": 4},
                "cache_hits": {"type": "integer", "example": 40},
                "cache_misses": {"type": "integer", "example": 9},
                "definitions": {"type": "integer", "example": 12},
                "evictions_total": {"type": "integer", "example": 1},
                "invalidations_total": {"type": "integer", "example": 2},
                "last_error": {"type": "string"},
                "resolutions_total": {"type": "integer", "example": 9},
                "server_time_unix": {"type": "integer", "example": 1700000000},
                "store_version": {"type": "integer", "example": 3},
                "uptime_seconds": {"type": "integer", "example": 3600}
            }
        },
        "types.ValidateResponse": {
            "type": "object",
            "properties": {
                "problems": {"type": "array", "items": {"$ref": "#/definitions/types.Problem"}},
                "valid": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelyaml API",
	Description:      "HTTP API for resolving virtual model definitions into runnable configurations.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
