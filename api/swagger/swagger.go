package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ClaimFlow API",
        "description": "Reimbursement claim tracking with SLA clocks, escalations and an append-only audit ledger",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Claims", "description": "Claim lifecycle"},
        {"name": "Escalations", "description": "SLA breach escalations"},
        {"name": "Audit", "description": "Append-only audit ledger"},
        {"name": "Dashboards", "description": "Role-specific summaries"},
        {"name": "Exports", "description": "Claim register downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/claims": {
            "get": {
                "tags": ["Claims"],
                "summary": "List claims visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Claims"],
                "summary": "Submit a reimbursement claim",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitClaimRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/claims/{id}": {
            "get": {
                "tags": ["Claims"],
                "summary": "Get a single claim",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/claims/{id}/sla": {
            "get": {
                "tags": ["Claims"],
                "summary": "Evaluate the SLA clock for a claim",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "at", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/claims/{id}/timeline": {
            "get": {
                "tags": ["Claims"],
                "summary": "Audit timeline and replayed projection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/claims/{id}/approve": {
            "post": {
                "tags": ["Claims"],
                "summary": "Approve a claim",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version conflict or illegal transition"}
                }
            }
        },
        "/claims/{id}/reject": {
            "post": {
                "tags": ["Claims"],
                "summary": "Reject a claim",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version conflict or illegal transition"}
                }
            }
        },
        "/claims/{id}/pay": {
            "post": {
                "tags": ["Claims"],
                "summary": "Mark an approved claim as paid",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version conflict or illegal transition"}
                }
            }
        },
        "/claims/{id}/escalate": {
            "post": {
                "tags": ["Escalations"],
                "summary": "Evaluate a claim and escalate it if breached",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/escalations": {
            "get": {
                "tags": ["Escalations"],
                "summary": "List escalations",
                "parameters": [
                    {"name": "claimId", "in": "query", "type": "string"},
                    {"name": "unresolved", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/escalations/{id}/resolve": {
            "post": {
                "tags": ["Escalations"],
                "summary": "Resolve an escalation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveEscalationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "Query the audit ledger",
                "parameters": [
                    {"name": "claimId", "in": "query", "type": "string"},
                    {"name": "entityType", "in": "query", "type": "string"},
                    {"name": "entityId", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "userId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboards/student/claims": {
            "get": {
                "tags": ["Dashboards"],
                "summary": "Student claim dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboards/approver/claims": {
            "get": {
                "tags": ["Dashboards"],
                "summary": "Department review queue sorted by urgency",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboards/admin/metrics": {
            "get": {
                "tags": ["Dashboards"],
                "summary": "System-wide compliance metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/claims": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the claim register",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        }
    },
    "definitions": {
        "SubmitClaimRequest": {
            "type": "object",
            "required": ["amount", "currency", "description", "category", "departmentId", "slaId"],
            "properties": {
                "amount": {"type": "string"},
                "currency": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string", "enum": ["TRAVEL", "SUPPLIES", "CONFERENCE", "OTHER"]},
                "departmentId": {"type": "string"},
                "slaId": {"type": "string"},
                "attachments": {"type": "array", "items": {"type": "object"}}
            }
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "expectedVersion": {"type": "integer"},
                "amountApproved": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "ResolveEscalationRequest": {
            "type": "object",
            "required": ["resolution"],
            "properties": {
                "resolution": {"type": "string"}
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
