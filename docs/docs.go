// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with `swag init -g cmd/matchday/main.go` after changing handler annotations.
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
        "/sync": {
            "post": {
                "tags": ["Sync"],
                "summary": "Run a sync batch",
                "operationId": "triggerSync",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Shared cron secret", "name": "X-Cron-Secret", "in": "header"},
                    {"type": "string", "description": "Bearer admin JWT", "name": "Authorization", "in": "header"},
                    {"type": "string", "description": "Idempotency key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Optional single-match filter", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/handlers.TriggerSyncRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/livesync.BatchResult"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Sync failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/matches/{id}/live": {
            "get": {
                "tags": ["Matches"],
                "summary": "Live view of a match",
                "operationId": "getLive",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Match not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/matches/{id}/timer": {
            "get": {
                "tags": ["Timer"],
                "summary": "Get the match clock",
                "operationId": "getTimer",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TimerResponse"}},
                    "404": {"description": "Match not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/matches/{id}/timer/stream": {
            "get": {
                "tags": ["Timer"],
                "summary": "Stream the match clock",
                "operationId": "streamTimer",
                "produces": ["text/event-stream"],
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/matchclock.Snapshot"}},
                    "404": {"description": "Match not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/matches/{id}/timer/{action}": {
            "post": {
                "tags": ["Timer"],
                "summary": "Apply a clock transition",
                "operationId": "timerAction",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "action", "in": "path", "required": true},
                    {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/handlers.TimerActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TimerResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/matches/{id}/timer/extra-time": {
            "put": {
                "tags": ["Timer"],
                "summary": "Correct announced stoppage",
                "operationId": "setExtraTime",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ExtraTimeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TimerResponse"}},
                    "409": {"description": "No stoppage in extra time", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/matches/{id}/automation": {
            "get": {
                "tags": ["Automation"],
                "summary": "Get sync settings",
                "operationId": "getAutomation",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Match or settings not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "tags": ["Automation"],
                "summary": "Configure sync settings",
                "operationId": "putAutomation",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AutomationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/matches/{id}/live-blog": {
            "get": {
                "tags": ["LiveBlog"],
                "summary": "List live-blog entries (paginated)",
                "operationId": "listLiveBlog",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "If-None-Match", "in": "header"},
                    {"type": "integer", "default": 1, "minimum": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "minimum": 1, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "headers": {"ETag": {"type": "string"}}},
                    "304": {"description": "Not Modified"},
                    "404": {"description": "Match not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["LiveBlog"],
                "summary": "Post a live-blog entry",
                "operationId": "postLiveBlog",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PostEntryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string"}
            }
        },
        "handlers.TriggerSyncRequest": {
            "type": "object",
            "properties": {"match_id": {"type": "string"}}
        },
        "handlers.TimerActionRequest": {
            "type": "object",
            "properties": {"extra_time": {"type": "integer", "example": 3}}
        },
        "handlers.ExtraTimeRequest": {
            "type": "object",
            "required": ["minutes"],
            "properties": {"minutes": {"type": "integer", "example": 4}}
        },
        "handlers.AutomationRequest": {
            "type": "object",
            "properties": {
                "automation_enabled": {"type": "boolean"},
                "api_fixture_id": {"type": "integer"},
                "auto_timer": {"type": "boolean"},
                "auto_live_blog": {"type": "boolean"},
                "auto_score": {"type": "boolean"}
            }
        },
        "handlers.PostEntryRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "minute": {"type": "integer"},
                "entry_type": {"type": "string", "example": "update"},
                "title": {"type": "string", "maxLength": 255},
                "content": {"type": "string"},
                "is_important": {"type": "boolean"},
                "team_side": {"type": "string", "enum": ["home", "away"]}
            }
        },
        "handlers.TimerResponse": {
            "type": "object",
            "properties": {
                "settings": {"type": "object"},
                "snapshot": {"$ref": "#/definitions/matchclock.Snapshot"}
            }
        },
        "matchclock.Snapshot": {
            "type": "object",
            "properties": {
                "match_id": {"type": "string"},
                "display": {"type": "string", "example": "45'+2"},
                "minute": {"type": "integer"},
                "half": {"type": "integer"},
                "running": {"type": "boolean"},
                "paused": {"type": "boolean"},
                "extra_time": {"type": "boolean"}
            }
        },
        "livesync.BatchResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "synced": {"type": "integer"},
                "total": {"type": "integer"},
                "results": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "matchId": {"type": "string"},
                            "result": {
                                "type": "object",
                                "properties": {
                                    "success": {"type": "boolean"},
                                    "message": {"type": "string"}
                                }
                            }
                        }
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Matchday Live API",
	Description:      "Live match clock, live blog and external fixture sync.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
