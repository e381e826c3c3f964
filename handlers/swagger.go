package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the API docs.
// - GET /swagger/index.html  -> Swagger UI page loading the document below
// - GET /swagger/doc.json    -> OpenAPI document
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>SBC backend - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "SBC backend", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Credentials": { "type": "object", "required": ["email", "password"], "properties": { "email": { "type": "string", "minLength": 3, "maxLength": 254 }, "password": { "type": "string", "minLength": 8 } } },
      "Message": { "type": "object", "properties": { "message": { "type": "string" } } }
    }
  },
  "paths": {
    "/auth/register": {
      "post": { "summary": "Create an account", "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Credentials" } } } },
        "responses": { "201": { "description": "{email, id}" }, "400": { "description": "invalid body" }, "409": { "description": "email already registered" } } }
    },
    "/auth/login": {
      "post": { "summary": "Log in and open a session", "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Credentials" } } } },
        "responses": { "200": { "description": "{accessToken, refreshToken, sid, data}" }, "403": { "description": "unknown email or wrong password" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate the session and issue a new token pair", "security": [{ "bearer": [] }],
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "required": ["sid"], "properties": { "sid": { "type": "string" } } } } } },
        "responses": { "200": { "description": "{newAccessToken, newRefreshToken, newSid}" }, "400": { "description": "no token" }, "401": { "description": "invalid refresh token" }, "404": { "description": "invalid user or session" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Close the current session", "security": [{ "bearer": [] }], "responses": { "204": { "description": "logged out" }, "401": { "description": "invalid token" } } }
    },
    "/auth/password/requestReset": {
      "get": { "summary": "Mail a password reset link", "requestBody": { "content": { "application/json": { "schema": { "type": "object", "required": ["email"], "properties": { "email": { "type": "string" } } } } } },
        "responses": { "204": { "description": "accepted" } } }
    },
    "/auth/password/reset": {
      "post": { "summary": "Set a new password with a reset token", "requestBody": { "content": { "application/json": { "schema": { "type": "object", "required": ["token", "newPassword"], "properties": { "token": { "type": "string" }, "newPassword": { "type": "string", "minLength": 8 } } } } } },
        "responses": { "204": { "description": "password changed" }, "401": { "description": "invalid token" }, "404": { "description": "user not found" } } }
    },
    "/project": {
      "get": { "summary": "List the user's projects", "security": [{ "bearer": [] }], "responses": { "200": { "description": "projects" } } },
      "post": { "summary": "Create a project", "security": [{ "bearer": [] }], "responses": { "201": { "description": "created project" } } }
    },
    "/project/{projectId}": { "delete": { "summary": "Delete a project with its sprints and tasks", "security": [{ "bearer": [] }], "responses": { "204": { "description": "deleted" }, "404": { "description": "project not found" } } } },
    "/project/contributor/{projectId}": { "patch": { "summary": "Add a contributor", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{newMembers}" } } } },
    "/project/title/{projectId}": { "patch": { "summary": "Rename a project", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{newTitle}" } } } },
    "/sprint/{projectId}": {
      "get": { "summary": "List a project's sprints", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{sprints}" }, "403": { "description": "not a contributor" } } },
      "post": { "summary": "Create a sprint", "security": [{ "bearer": [] }], "responses": { "201": { "description": "created sprint" } } }
    },
    "/sprint/title/{sprintId}": { "patch": { "summary": "Rename a sprint", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{newTitle}" } } } },
    "/sprint/{sprintId}": { "delete": { "summary": "Delete a sprint with its tasks", "security": [{ "bearer": [] }], "responses": { "204": { "description": "deleted" } } } },
    "/task/{sprintId}": {
      "get": { "summary": "List a sprint's tasks", "security": [{ "bearer": [] }], "parameters": [{ "name": "search", "in": "query", "schema": { "type": "string" } }], "responses": { "200": { "description": "tasks" } } },
      "post": { "summary": "Create a task", "security": [{ "bearer": [] }], "responses": { "201": { "description": "created task" } } }
    },
    "/task/{taskId}": {
      "patch": { "summary": "Set the hours spent on one day", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{day, newWastedHours}" }, "404": { "description": "task or day not found" } } },
      "delete": { "summary": "Delete a task", "security": [{ "bearer": [] }], "responses": { "204": { "description": "deleted" } } }
    },
    "/task/changeStatus/{taskId}": { "patch": { "summary": "Toggle task completion", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status}" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
