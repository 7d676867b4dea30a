// Package docs registers the swagger specification for the run API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List all runs",
                "responses": {
                    "200": {"description": "List of runs"},
                    "500": {"description": "Internal server error"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Launch a dataset run",
                "responses": {
                    "202": {"description": "Run accepted"},
                    "400": {"description": "Invalid request payload"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/runs/{runID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get a run",
                "parameters": [
                    {"type": "string", "name": "runID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Run"},
                    "404": {"description": "Run not found"}
                }
            }
        },
        "/runs/{runID}/verdicts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run verdicts",
                "parameters": [
                    {"type": "string", "name": "runID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Verdicts"},
                    "500": {"description": "Internal server error"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported swagger configuration.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api/v1",
	Title:            "Health Data Pipeline API",
	Description:      "Launch and inspect validation-and-reconciliation pipeline runs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
