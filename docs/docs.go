// Package docs holds the swagger document served at /swagger/*any.
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
        "/health": {
            "get": {
                "summary": "Probe MySQL then MongoDB; the first failure fails the check",
                "responses": {"200": {"description": "both stores answered"}, "500": {"description": "a probe failed"}}
            }
        },
        "/orders": {
            "post": {
                "summary": "Create a PENDING order; the total is computed from the items",
                "parameters": [{"in": "body", "name": "order", "required": true, "schema": {"$ref": "#/definitions/createOrderRequest"}}],
                "responses": {"200": {"description": "orderId and total"}, "400": {"description": "missing or invalid fields"}, "500": {"description": "store error"}}
            }
        },
        "/orders/{id}": {
            "get": {
                "summary": "Order with its items and payments",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "order"}, "404": {"description": "order not found"}}
            }
        },
        "/orders/{id}/pay": {
            "post": {
                "summary": "Record a successful payment and mark the order PAID",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "payment", "required": true, "schema": {"$ref": "#/definitions/payOrderRequest"}}
                ],
                "responses": {"200": {"description": "orderId and state"}, "400": {"description": "amount required"}, "404": {"description": "order not found"}, "409": {"description": "order already paid"}, "500": {"description": "store error"}}
            }
        },
        "/reviews": {
            "post": {
                "summary": "Store a review; a referenced order must be PAID",
                "parameters": [{"in": "body", "name": "review", "required": true, "schema": {"$ref": "#/definitions/createReviewRequest"}}],
                "responses": {"200": {"description": "insertedId"}, "400": {"description": "missing fields or order not PAID"}, "503": {"description": "document store unavailable"}, "500": {"description": "store error"}}
            }
        },
        "/products/{id}/summary": {
            "get": {
                "summary": "Paid units sold and review stats for a product",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "query", "name": "read_from", "type": "string", "enum": ["primary", "secondary"]}
                ],
                "responses": {"200": {"description": "summary"}, "503": {"description": "document store unavailable"}, "500": {"description": "store error"}}
            }
        },
        "/products/{id}/reviews": {
            "get": {
                "summary": "Reviews of a product, newest first",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "query", "name": "read_from", "type": "string", "enum": ["primary", "secondary"]},
                    {"in": "query", "name": "limit", "type": "integer", "minimum": 1, "default": 50}
                ],
                "responses": {"200": {"description": "reviews"}, "503": {"description": "document store unavailable"}}
            }
        },
        "/admin/stepdown": {
            "post": {
                "summary": "Force the MongoDB primary to step down (failover testing)",
                "parameters": [{"in": "body", "name": "stepdown", "schema": {"$ref": "#/definitions/stepDownRequest"}}],
                "responses": {"200": {"description": "steppingDown seconds"}, "500": {"description": "command failed"}}
            }
        }
    },
    "definitions": {
        "orderItem": {
            "type": "object",
            "required": ["productId", "quantity", "price"],
            "properties": {"productId": {"type": "integer"}, "quantity": {"type": "integer"}, "price": {"type": "number"}}
        },
        "createOrderRequest": {
            "type": "object",
            "required": ["userId", "items"],
            "properties": {"userId": {"type": "integer"}, "items": {"type": "array", "items": {"$ref": "#/definitions/orderItem"}}}
        },
        "payOrderRequest": {
            "type": "object",
            "required": ["amount"],
            "properties": {"amount": {"type": "number"}, "provider": {"type": "string", "default": "VNPAY"}}
        },
        "createReviewRequest": {
            "type": "object",
            "required": ["productId", "rating"],
            "properties": {"productId": {"type": "integer"}, "rating": {"type": "number"}, "comment": {"type": "string"}, "orderId": {"type": "integer"}}
        },
        "stepDownRequest": {
            "type": "object",
            "properties": {"seconds": {"type": "integer", "default": 10}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Shop API",
	Description:      "Orders and payments in MySQL, product reviews in a MongoDB replica set.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
