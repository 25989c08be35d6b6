package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SIWES Portal API",
        "description": "Weekly report lifecycle, attendance and grading engine for SIWES placements",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Students", "description": "Student profiles, supervisor assignment and locking"},
        {"name": "Reports", "description": "Weekly logbook lifecycle"},
        {"name": "PreRegistrations", "description": "Placement intake gate"},
        {"name": "Attendance", "description": "Daily check-in/check-out and verification"},
        {"name": "Grading", "description": "Placement grade preview and commit"},
        {"name": "Notifications", "description": "Admin notification inbox"},
        {"name": "Exports", "description": "Logbook CSV and grade slip PDF"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "locked", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student and dependent records",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/lock": {
            "post": {
                "tags": ["Students"],
                "summary": "Lock SIWES records",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/grade/preview": {
            "get": {
                "tags": ["Grading"],
                "summary": "Preview placement grade",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GradingResult"}}
                }
            }
        },
        "/students/{id}/grade/commit": {
            "post": {
                "tags": ["Grading"],
                "summary": "Commit placement grade and lock the student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CommitGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GradingResult"}},
                    "409": {"description": "Already graded"}
                }
            }
        },
        "/reports/draft": {
            "put": {
                "tags": ["Reports"],
                "summary": "Save a weekly report draft",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveDraftRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WeeklyReport"}},
                    "423": {"description": "Student records locked"}
                }
            }
        },
        "/reports/{id}/submit": {
            "post": {
                "tags": ["Reports"],
                "summary": "Submit a weekly report for review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WeeklyReport"}},
                    "412": {"description": "Pre-registration not approved"}
                }
            }
        },
        "/reports/{id}/approve": {
            "post": {
                "tags": ["Reports"],
                "summary": "Approve a submitted report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WeeklyReport"}},
                    "409": {"description": "Reviewed by someone else"}
                }
            }
        },
        "/reports/{id}/reject": {
            "post": {
                "tags": ["Reports"],
                "summary": "Reject a submitted report with a reason",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WeeklyReport"}},
                    "409": {"description": "Reviewed by someone else"}
                }
            }
        },
        "/preregistrations": {
            "post": {
                "tags": ["PreRegistrations"],
                "summary": "Create a pre-registration",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already exists for session"}
                }
            }
        },
        "/attendance/check-in": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record today's check-in",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already checked in"}
                }
            }
        },
        "/attendance/check-out": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record today's check-out",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No open check-in"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List admin notifications",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "full_name": {"type": "string"},
                "matric_number": {"type": "string"},
                "department": {"type": "string"},
                "faculty": {"type": "string"},
                "organisation_name": {"type": "string"},
                "organisation_address": {"type": "string"}
            },
            "required": ["user_id", "full_name", "matric_number", "department", "faculty"]
        },
        "SaveDraftRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "week_number": {"type": "integer"},
                "monday_activity": {"type": "string"},
                "tuesday_activity": {"type": "string"},
                "wednesday_activity": {"type": "string"},
                "thursday_activity": {"type": "string"},
                "friday_activity": {"type": "string"},
                "saturday_activity": {"type": "string"}
            },
            "required": ["student_id", "week_number"]
        },
        "WeeklyReport": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "week_number": {"type": "integer"},
                "status": {"type": "string", "enum": ["DRAFT", "SUBMITTED", "APPROVED", "REJECTED"]},
                "score": {"type": "number"},
                "rejection_reason": {"type": "string"},
                "submitted_at": {"type": "string"},
                "approved_at": {"type": "string"}
            }
        },
        "CommitGradeRequest": {
            "type": "object",
            "properties": {
                "weekly_reports_override": {"type": "number"},
                "remarks": {"type": "string"}
            }
        },
        "GradingResult": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "breakdown": {
                    "type": "object",
                    "properties": {
                        "attendance": {"type": "number"},
                        "weekly_reports": {"type": "number"},
                        "supervisor_approval": {"type": "number"},
                        "total": {"type": "number"}
                    }
                },
                "grade": {"type": "string", "enum": ["A", "B", "C", "D", "F"]},
                "committed": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
