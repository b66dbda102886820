// Package docs регистрирует описание HTTP API для swagger UI по пути /docs/.
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
        "/sync-now": {
            "post": {
                "tags": ["sync"],
                "summary": "Запустить полную синхронизацию",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Итог прогона", "schema": {"$ref": "#/definitions/models.SyncRunSummary"}},
                    "429": {"description": "Слишком частые запуски", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Прогон не удалось начать", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/users": {
            "get": {
                "tags": ["users"],
                "summary": "Список пользователей",
                "parameters": [
                    {"type": "integer", "default": 0, "name": "skip", "in": "query"},
                    {"type": "integer", "default": 100, "maximum": 1000, "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.User"}}},
                    "400": {"description": "Некорректная пагинация", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "post": {
                "tags": ["users"],
                "summary": "Создать пользователя и синхронизировать его подписку",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.DummyUser"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "400": {"description": "Некорректный запрос", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/users/by-email/{email}": {
            "get": {
                "tags": ["users"],
                "summary": "Пользователь по email",
                "parameters": [{"type": "string", "name": "email", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "404": {"description": "Не найден", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/users/sync/{id}": {
            "post": {
                "tags": ["users"],
                "summary": "Синхронизировать пользователя",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Не найден", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Синхронизация не удалась", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/subscriptions/check/{email}": {
            "get": {
                "tags": ["subscriptions"],
                "summary": "Подписка из внешнего сервиса",
                "parameters": [{"type": "string", "name": "email", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SubscriptionRecord"}},
                    "404": {"description": "Подписки нет", "schema": {"$ref": "#/definitions/response.Response"}},
                    "502": {"description": "Внешний сервис недоступен", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/subscriptions/cached/{email}": {
            "get": {
                "tags": ["subscriptions"],
                "summary": "Подписка из локальной копии",
                "parameters": [{"type": "string", "name": "email", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CachedSubscription"}},
                    "404": {"description": "Нет пользователя или подписки", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/subscriptions/sync-all": {
            "post": {
                "tags": ["sync"],
                "summary": "Запустить полную синхронизацию",
                "responses": {
                    "200": {"description": "Итог прогона", "schema": {"$ref": "#/definitions/models.SyncRunSummary"}}
                }
            }
        },
        "/api/sync-runs": {
            "get": {
                "tags": ["sync"],
                "summary": "Журнал прогонов",
                "parameters": [{"type": "integer", "default": 20, "maximum": 100, "name": "limit", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.SyncRun"}}}
                }
            }
        },
        "/api/sync-runs/latest": {
            "get": {
                "tags": ["sync"],
                "summary": "Последний прогон",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SyncRun"}},
                    "404": {"description": "Прогонов ещё не было", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/sync-runs/{id}": {
            "get": {
                "tags": ["sync"],
                "summary": "Прогон по ID",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SyncRun"}},
                    "404": {"description": "Не найден", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "Error"},
                "error": {"type": "string"},
                "data": {}
            }
        },
        "models.DummyUser": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string", "example": "user@example.com"}}
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "beag_client_id": {"type": "integer"},
                "subscription_status": {"type": "string", "enum": ["PAID", "FAILED", "CANCELLED", "REFUNDED", "PAUSED", "RESUMED"]},
                "plan_id": {"type": "integer"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "my_saas_app_id": {"type": "string"},
                "last_synced": {"type": "string", "format": "date-time"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "models.SubscriptionRecord": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "status": {"type": "string"},
                "plan_id": {"type": "integer"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "my_saas_app_id": {"type": "string"},
                "client_id": {"type": "integer"}
            }
        },
        "models.CachedSubscription": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "status": {"type": "string"},
                "plan_id": {"type": "integer"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "last_synced": {"type": "string", "format": "date-time"}
            }
        },
        "models.SyncRun": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "started_at": {"type": "string", "format": "date-time"},
                "completed_at": {"type": "string", "format": "date-time"},
                "users_synced": {"type": "integer"},
                "users_failed": {"type": "integer"},
                "status": {"type": "string", "enum": ["IN_PROGRESS", "SUCCESS", "PARTIAL", "FAILED"]},
                "error_message": {"type": "string"}
            }
        },
        "models.SyncRunSummary": {
            "type": "object",
            "properties": {
                "run_id": {"type": "integer"},
                "total_users": {"type": "integer"},
                "users_synced": {"type": "integer"},
                "users_failed": {"type": "integer"},
                "active_subscriptions": {"type": "integer"},
                "inactive_subscriptions": {"type": "integer"},
                "status": {"type": "string"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo содержит метаданные API, подставляемые в шаблон.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Subscription Sync API",
	Description:      "Локальная копия подписок пользователей с периодической синхронизацией из внешнего биллингового сервиса.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
