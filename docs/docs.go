// Package docs holds the swagger document served at /swagger/*.
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
        "/life-areas": {
            "get": {
                "tags": ["life-areas"],
                "summary": "List life areas",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/includeArchived"},
                    {"$ref": "#/parameters/search"},
                    {"$ref": "#/parameters/limit"}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Life areas ordered by sort_order", "schema": {"type": "array", "items": {"$ref": "#/definitions/entities.LifeArea"}}}
                }
            },
            "post": {
                "tags": ["life-areas"],
                "summary": "Create a life area",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/ports.CreateLifeAreaRequest"}}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/entities.LifeArea"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/life-areas/order": {
            "put": {
                "tags": ["life-areas"],
                "summary": "Reorder life areas",
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/ports.ReorderLifeAreasRequest"}}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Reordered"},
                    "404": {"description": "Unknown id", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/{resource}/{id}": {
            "patch": {
                "tags": ["entities"],
                "summary": "Update a life area, goal, project or task",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"$ref": "#/parameters/id"},
                    {"in": "body", "name": "patch", "required": true, "schema": {"type": "object"}}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Updated entity"},
                    "400": {"description": "Empty or invalid patch", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/{resource}/{id}/archive": {
            "post": {
                "tags": ["entities"],
                "summary": "Archive one entity",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"$ref": "#/parameters/id"}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Archived"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/{resource}/{id}/restore": {
            "post": {
                "tags": ["entities"],
                "summary": "Restore one entity",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"$ref": "#/parameters/id"}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Restored"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/{resource}/{id}/complete": {
            "post": {
                "tags": ["entities"],
                "summary": "Complete a goal, project or task",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/completable"},
                    {"$ref": "#/parameters/id"}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Completed entity"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/{resource}/{id}/uncomplete": {
            "post": {
                "tags": ["entities"],
                "summary": "Reopen a goal, project or task",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/completable"},
                    {"$ref": "#/parameters/id"}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Reopened entity"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/cascade/archive": {
            "post": {
                "tags": ["cascade"],
                "summary": "Archive a subtree",
                "description": "Archive an entity and everything beneath it. A cascade that stops part way answers 207 with the partial report.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "origin", "required": true, "schema": {"$ref": "#/definitions/entities.Ref"}}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Done", "schema": {"$ref": "#/definitions/ports.CascadeReport"}},
                    "207": {"description": "Partial failure", "schema": {"$ref": "#/definitions/ports.CascadeReport"}},
                    "400": {"description": "Invalid origin", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/cascade/restore": {
            "post": {
                "tags": ["cascade"],
                "summary": "Restore a subtree",
                "description": "Restore an entity and the descendants its latest cascade archived.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "origin", "required": true, "schema": {"$ref": "#/definitions/entities.Ref"}}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Done", "schema": {"$ref": "#/definitions/ports.CascadeReport"}},
                    "207": {"description": "Partial failure", "schema": {"$ref": "#/definitions/ports.CascadeReport"}},
                    "400": {"description": "Invalid origin", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/tree": {
            "get": {
                "tags": ["tree"],
                "summary": "Hierarchy tree",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/includeArchived"}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Life areas with their subtrees", "schema": {"type": "array", "items": {"$ref": "#/definitions/services.TreeNode"}}}
                }
            }
        }
    },
    "parameters": {
        "resource": {"in": "path", "name": "resource", "required": true, "type": "string", "enum": ["life-areas", "goals", "projects", "tasks"]},
        "completable": {"in": "path", "name": "resource", "required": true, "type": "string", "enum": ["goals", "projects", "tasks"]},
        "id": {"in": "path", "name": "id", "required": true, "type": "string"},
        "includeArchived": {"in": "query", "name": "include_archived", "type": "boolean"},
        "search": {"in": "query", "name": "search", "type": "string"},
        "limit": {"in": "query", "name": "limit", "type": "integer", "minimum": 1}
    },
    "definitions": {
        "entities.Ref": {
            "type": "object",
            "required": ["kind", "id"],
            "properties": {
                "kind": {"type": "string", "enum": ["life_area", "goal", "project", "task"]},
                "id": {"type": "string"}
            }
        },
        "entities.LifeArea": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "color": {"type": "string"},
                "icon": {"type": "string"},
                "sort_order": {"type": "integer"},
                "archived_at": {"type": "string", "format": "date-time"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "ports.CreateLifeAreaRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string", "maxLength": 100},
                "description": {"type": "string", "maxLength": 500},
                "color": {"type": "string", "example": "#3b82f6"},
                "icon": {"type": "string", "maxLength": 50}
            }
        },
        "ports.ReorderLifeAreasRequest": {
            "type": "object",
            "required": ["ids"],
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ports.CascadeReport": {
            "type": "object",
            "properties": {
                "operation_id": {"type": "string"},
                "origin": {"$ref": "#/definitions/entities.Ref"},
                "state": {"type": "string", "enum": ["done", "partial_failure"]},
                "succeeded": {"type": "array", "items": {"$ref": "#/definitions/entities.Ref"}},
                "failed": {"$ref": "#/definitions/entities.Ref"},
                "error": {"type": "string"},
                "pending": {"type": "array", "items": {"$ref": "#/definitions/entities.Ref"}},
                "skipped": {"type": "array", "items": {"$ref": "#/definitions/entities.Ref"}}
            }
        },
        "services.TreeNode": {
            "type": "object",
            "properties": {
                "ref": {"$ref": "#/definitions/entities.Ref"},
                "label": {"type": "string"},
                "archived": {"type": "boolean"},
                "missing": {"type": "boolean"},
                "children": {"type": "array", "items": {"$ref": "#/definitions/services.TreeNode"}}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and the token from 'lifeplanner token'"
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "LifePlanner API",
	Description:      "Life areas, goals, projects and tasks with cascading archive and restore",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
