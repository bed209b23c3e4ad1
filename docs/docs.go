// Package docs is generated by swag. Regenerate with go generate ./cmd/sso.
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
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/readyz": {
            "get": {
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/sso/token": {
            "post": {
                "description": "grant_type=authorization_code exchanges a one-time code (PKCE aware). grant_type=refresh_token is delegated to the refresh flow.",
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Exchange an authorization code",
                "parameters": [{"description": "token request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.ExchangeInput"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.TokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/sso/refresh": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Rotate a credential pair",
                "parameters": [{"description": "refresh request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.RefreshInput"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.TokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/sso/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Register or log in an SSO user",
                "parameters": [{"description": "registration request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.RegisterInput"}}],
                "responses": {
                    "200": {"description": "existing user", "schema": {"$ref": "#/definitions/service.RegisterResult"}},
                    "201": {"description": "new user", "schema": {"$ref": "#/definitions/service.RegisterResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/sso/verify": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Introspect a bearer credential",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Introspect a bearer credential",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/sso/sync": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Synchronize per-platform state",
                "parameters": [{"description": "sync request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.SyncInput"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SyncResult"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/sso/ledger": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Idempotent on (client_id, transaction_id). A replay returns already_processed=true.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Record a ledger transaction",
                "parameters": [{"description": "ledger entry", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.LedgerInput"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.LedgerResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/sso/revoke": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "produces": ["application/json"],
                "tags": ["sso"],
                "summary": "Revoke a credential pair",
                "parameters": [{"description": "revocation request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.RevokeInput"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.revokeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"},
                "retry_after": {"type": "integer"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/service.FieldError"}}
            }
        },
        "handler.revokeResponse": {
            "type": "object",
            "properties": {"revoked": {"type": "boolean"}}
        },
        "service.FieldError": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
        },
        "service.ExchangeInput": {
            "type": "object",
            "properties": {
                "grant_type": {"type": "string"},
                "code": {"type": "string"},
                "client_id": {"type": "string"},
                "client_secret": {"type": "string"},
                "redirect_uri": {"type": "string"},
                "code_verifier": {"type": "string"},
                "refresh_token": {"type": "string"}
            }
        },
        "service.RefreshInput": {
            "type": "object",
            "properties": {
                "grant_type": {"type": "string"},
                "refresh_token": {"type": "string"},
                "client_id": {"type": "string"},
                "client_secret": {"type": "string"}
            }
        },
        "service.RevokeInput": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "token_type_hint": {"type": "string"},
                "client_id": {"type": "string"},
                "client_secret": {"type": "string"}
            }
        },
        "service.RegisterInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "client_id": {"type": "string"},
                "client_secret": {"type": "string"},
                "username": {"type": "string"},
                "display_name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "bio": {"type": "string"},
                "scope": {"type": "string"},
                "platform_data": {"type": "object"}
            }
        },
        "service.UserSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fun_id": {"type": "string"},
                "username": {"type": "string"},
                "display_name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "wallet_address": {"type": "string"},
                "custodial_wallet": {"type": "string"},
                "is_verified": {"type": "boolean"}
            }
        },
        "service.TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"},
                "refresh_token": {"type": "string"},
                "scope": {"type": "string"},
                "user": {"$ref": "#/definitions/service.UserSummary"}
            }
        },
        "service.RegisterResult": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"},
                "refresh_token": {"type": "string"},
                "scope": {"type": "string"},
                "user": {"$ref": "#/definitions/service.UserSummary"},
                "is_new_user": {"type": "boolean"}
            }
        },
        "service.SyncInput": {
            "type": "object",
            "properties": {
                "sync_mode": {"type": "string", "enum": ["merge", "replace", "append", "delta"]},
                "data": {"type": "object"},
                "categories": {"type": "array", "items": {"type": "string"}},
                "client_timestamp": {},
                "financial_data": {"type": "object"},
                "financial_delta": {"type": "object"}
            }
        },
        "service.FinancialSnapshot": {
            "type": "object",
            "properties": {
                "total_deposit": {"type": "integer"},
                "total_withdraw": {"type": "integer"},
                "total_bet": {"type": "integer"},
                "total_win": {"type": "integer"},
                "total_loss": {"type": "integer"},
                "total_profit": {"type": "integer"},
                "sync_count": {"type": "integer"},
                "last_sync_at": {"type": "string"}
            }
        },
        "service.SyncResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "sync_mode": {"type": "string"},
                "sync_count": {"type": "integer"},
                "synced_at": {"type": "string"},
                "categories_updated": {"type": "array", "items": {"type": "string"}},
                "data_size": {"type": "integer"},
                "financial": {"$ref": "#/definitions/service.FinancialSnapshot"},
                "financial_skipped": {"type": "string"}
            }
        },
        "service.LedgerInput": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "amount": {"type": "number"},
                "currency": {"type": "string"},
                "transaction_id": {"type": "string"},
                "metadata": {"type": "object"}
            }
        },
        "service.TransactionEcho": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "action": {"type": "string"},
                "amount": {"type": "integer"},
                "currency": {"type": "string"},
                "transaction_id": {"type": "string"},
                "metadata": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "service.LedgerResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "already_processed": {"type": "boolean"},
                "id": {"type": "integer"},
                "transaction": {"$ref": "#/definitions/service.TransactionEcho"},
                "balance": {"$ref": "#/definitions/service.FinancialSnapshot"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Fun Profile SSO API",
	Description:      "Cross-platform credentials, introspection, state sync and ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
