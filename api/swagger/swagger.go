package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic Scheduler API",
        "description": "Timetable validation, generation and conflict resolution for rooms, teachers and student groups",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and token lifecycle"},
        {"name": "Rooms", "description": "Room catalogue and free-room search"},
        {"name": "Sessions", "description": "Timetable sessions and conflict checks"},
        {"name": "Generator", "description": "Weekly timetable generation"},
        {"name": "Absences", "description": "Teacher unavailability and cancellation cascade"},
        {"name": "Makeups", "description": "Make-up session booking"},
        {"name": "Reservations", "description": "Ad-hoc room requests and review"},
        {"name": "Notifications", "description": "User inbox"},
        {"name": "Export", "description": "Timetable export"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke a refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rooms/available": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Rooms free for a time range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "start_time", "in": "query", "type": "string", "required": true},
                    {"name": "end_time", "in": "query", "type": "string", "required": true},
                    {"name": "min_capacity", "in": "query", "type": "integer"},
                    {"name": "kind", "in": "query", "type": "string", "enum": ["classroom", "amphitheater", "laboratory"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/best": {
            "post": {
                "tags": ["Rooms"],
                "summary": "Most suitable free room",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BestRoomRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No suitable room", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/assign": {
            "post": {
                "tags": ["Rooms"],
                "summary": "Assign one free room per group for the same slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRoomsRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "group_id", "in": "query", "type": "string"},
                    {"name": "room_id", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Create a session after validation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get a session",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Delete a session",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/sessions/validate": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Validate a candidate session without storing it",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/availability": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Busy intervals and free gaps of a resource on a day",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "resource", "in": "query", "type": "string", "enum": ["room", "teacher", "group"], "required": true},
                    {"name": "id", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "format": "date", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/generator/preview": {
            "post": {
                "tags": ["Generator"],
                "summary": "Generate a week without storing it",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/generator/commit": {
            "post": {
                "tags": ["Generator"],
                "summary": "Generate a week and store the placed sessions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Nothing placed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences": {
            "get": {
                "tags": ["Absences"],
                "summary": "List availability blocks",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "teacher_id", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Absences"],
                "summary": "Declare an absence and cancel the affected sessions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DeclareAbsenceRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/absences/{id}": {
            "delete": {
                "tags": ["Absences"],
                "summary": "Remove an availability block",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/makeups": {
            "get": {
                "tags": ["Makeups"],
                "summary": "List make-up sessions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "confirmed", "cancelled", "rejected"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Makeups"],
                "summary": "Book a make-up session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookMakeupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/makeups/{id}/cancel": {
            "post": {
                "tags": ["Makeups"],
                "summary": "Cancel a make-up session",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reservations": {
            "get": {
                "tags": ["Reservations"],
                "summary": "List reservations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Reservations"],
                "summary": "Request a room",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReservationRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reservations/{id}/approve": {
            "post": {
                "tags": ["Reservations"],
                "summary": "Approve a pending reservation",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reservations/{id}/reject": {
            "post": {
                "tags": ["Reservations"],
                "summary": "Reject a pending reservation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectReservationRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/timetable/export": {
            "get": {
                "tags": ["Export"],
                "summary": "Export a group or teacher timetable",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "group_id", "in": "query", "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "to", "in": "query", "type": "string", "format": "date", "required": true}
                ],
                "responses": {"200": {"description": "File"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "BestRoomRequest": {
            "type": "object",
            "required": ["date", "start_time", "end_time"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string", "example": "08:00"},
                "end_time": {"type": "string", "example": "09:30"},
                "min_capacity": {"type": "integer"},
                "kind": {"type": "string"},
                "group_size": {"type": "integer"},
                "equipment": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AssignRoomsRequest": {
            "type": "object",
            "required": ["date", "start_time", "end_time", "group_ids"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "kind": {"type": "string"},
                "group_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateSessionRequest": {
            "type": "object",
            "required": ["title", "date", "start_time", "end_time"],
            "properties": {
                "title": {"type": "string"},
                "kind": {"type": "string", "enum": ["lecture", "tutorial", "lab", "exam", "make-up", "defense"]},
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "room_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "group_id": {"type": "string"},
                "exclude_id": {"type": "string"}
            }
        },
        "CourseRequirement": {
            "type": "object",
            "required": ["group_id", "teacher_id", "title", "duration_minutes", "sessions_per_week"],
            "properties": {
                "group_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "title": {"type": "string"},
                "kind": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "sessions_per_week": {"type": "integer"}
            }
        },
        "GenerateRequest": {
            "type": "object",
            "required": ["requirements"],
            "properties": {
                "week_start": {"type": "string", "format": "date"},
                "requirements": {"type": "array", "items": {"$ref": "#/definitions/CourseRequirement"}}
            }
        },
        "DeclareAbsenceRequest": {
            "type": "object",
            "required": ["teacher_id", "start_date", "end_date"],
            "properties": {
                "teacher_id": {"type": "string"},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "reason": {"type": "string"}
            }
        },
        "BookMakeupRequest": {
            "type": "object",
            "required": ["teacher_id", "group_id", "room_id", "date", "start_time", "end_time"],
            "properties": {
                "teacher_id": {"type": "string"},
                "group_id": {"type": "string"},
                "room_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "reason": {"type": "string"},
                "original_session_id": {"type": "string"}
            }
        },
        "CreateReservationRequest": {
            "type": "object",
            "required": ["teacher_id", "room_id", "date", "start_time", "end_time", "reason"],
            "properties": {
                "teacher_id": {"type": "string"},
                "room_id": {"type": "string"},
                "group_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "RejectReservationRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
