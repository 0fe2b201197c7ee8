// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/readyz": {
            "get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/markets": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["markets"],
                "summary": "Search markets",
                "parameters": [
                    {"type": "string", "name": "platform", "in": "query"},
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "entity", "in": "query"},
                    {"type": "boolean", "name": "head_to_head", "in": "query"},
                    {"type": "number", "name": "min_volume", "in": "query"},
                    {"type": "string", "name": "min_liquidity", "in": "query"},
                    {"type": "string", "name": "min_end_date", "in": "query"},
                    {"type": "string", "name": "max_end_date", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/markets/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["markets"],
                "summary": "Get market",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/markets/{id}/analysis": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["markets"],
                "summary": "Analyze market",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "number", "name": "bankroll", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/opportunities/best": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["opportunities"],
                "summary": "Find the best opportunity",
                "parameters": [
                    {"type": "number", "name": "bankroll", "in": "query"},
                    {"type": "string", "name": "platform", "in": "query"},
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "number", "name": "min_volume", "in": "query"},
                    {"type": "string", "name": "min_liquidity", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/recommendations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["opportunities"],
                "summary": "List recommendations",
                "parameters": [
                    {"type": "string", "name": "scan_id", "in": "query"},
                    {"type": "string", "name": "market_id", "in": "query"},
                    {"type": "string", "name": "action", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/catalog/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["catalog"],
                "summary": "Refresh catalog",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}, "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        }
    },
    "definitions": {
        "handler.apiResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"},
                "meta": {"type": "object", "additionalProperties": true}
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
	Title:            "predictmax API",
	Description:      "Prediction-market discovery, analysis and opportunity scanning.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
