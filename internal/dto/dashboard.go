package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusops/claimflow/internal/models"
)

// ClaimSummary is a claim row enriched with its current SLA evaluation.
type ClaimSummary struct {
	Claim models.Claim         `json:"claim"`
	SLA   models.SLAEvaluation `json:"sla"`
}

// StudentDashboardResponse summarises a student's own claims.
type StudentDashboardResponse struct {
	UserID         string                     `json:"userId"`
	Claims         []ClaimSummary             `json:"claims"`
	CountsByStatus map[models.ClaimStatus]int `json:"countsByStatus"`
	TotalRequested decimal.Decimal            `json:"totalRequested"`
	TotalPaid      decimal.Decimal            `json:"totalPaid"`
	GeneratedAt    time.Time                  `json:"generatedAt"`
}

// ApproverDashboardResponse lists a department's open claims ordered by
// urgency: breached first, then by remaining time to deadline.
type ApproverDashboardResponse struct {
	DepartmentID  string         `json:"departmentId"`
	Queue         []ClaimSummary `json:"queue"`
	BreachedCount int            `json:"breachedCount"`
	WarningCount  int            `json:"warningCount"`
	OpenCount     int            `json:"openCount"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

// AdminDashboardResponse carries system-wide compliance metrics.
type AdminDashboardResponse struct {
	TotalClaims      int                        `json:"totalClaims"`
	TotalEscalations int                        `json:"totalEscalations"`
	BreachCount      int                        `json:"breachCount"`
	AvgDelayDays     float64                    `json:"avgDelayDays"`
	CountsByStatus   map[models.ClaimStatus]int `json:"countsByStatus"`
	GeneratedAt      time.Time                  `json:"generatedAt"`
}
