package parser

import (
	"math"
	"strings"
)

// Approval statuses.
const (
	ApprovalApproved    = "APPROVED"
	ApprovalRejected    = "REJECTED"
	ApprovalConditional = "CONDITIONAL"
	ApprovalPending     = "PENDING"
)

// Guardrails is the parsed compliance review.
type Guardrails struct {
	Status                 string                  `json:"status" yaml:"status"`
	ComplianceChecks       map[string]VerdictValue `json:"compliance_checks" yaml:"compliance_checks"`
	CriticalIssues         []string                `json:"critical_issues" yaml:"critical_issues"`
	Recommendations        []string                `json:"recommendations" yaml:"recommendations"`
	ApprovalStatus         string                  `json:"approval_status" yaml:"approval_status"`
	ApprovalConditions     []string                `json:"approval_conditions" yaml:"approval_conditions"`
	OverallComplianceScore float64                 `json:"overall_compliance_score" yaml:"overall_compliance_score"`
}

// Approved reports whether publishing may proceed.
func (g Guardrails) Approved() bool {
	return g.ApprovalStatus == ApprovalApproved || g.ApprovalStatus == ApprovalConditional
}

// ComplianceCategories are the checked compliance areas.
var ComplianceCategories = []string{
	"SECURITY_COMPLIANCE",
	"CODE_QUALITY_COMPLIANCE",
	"BUSINESS_LOGIC_COMPLIANCE",
	"DEPLOYMENT_READINESS",
	"REGULATORY_COMPLIANCE",
}

var guardrailsSchema = func() Schema {
	s := Schema{
		{Token: "GUARDRAILS_STATUS:", Field: "status", Kind: Scalar},
		{Token: "APPROVAL_STATUS:", Field: "approval_status", Kind: Scalar},
	}
	for _, c := range ComplianceCategories {
		s = append(s, Entry{Token: c + ":", Field: strings.ToLower(c), Kind: Verdict})
	}
	return append(s,
		Entry{Token: "CRITICAL_ISSUES:", Field: "critical_issues", Kind: List},
		Entry{Token: "RECOMMENDATIONS:", Field: "recommendations", Kind: List},
		Entry{Token: "APPROVAL_CONDITIONS:", Field: "approval_conditions", Kind: List},
	)
}()

// ParseGuardrails decodes a compliance response. The compliance score is
// 10 times the share of checks that passed, to one decimal.
func ParseGuardrails(text string) Guardrails {
	s := guardrailsSchema.Parse(text)

	checks := map[string]VerdictValue{}
	passed := 0
	for _, c := range ComplianceCategories {
		field := strings.ToLower(c)
		if v, ok := s.Verdicts[field]; ok {
			checks[field] = v
			if v.Status == "PASS" {
				passed++
			}
		}
	}

	g := Guardrails{
		Status:             s.scalar("status", "UNKNOWN"),
		ComplianceChecks:   checks,
		CriticalIssues:     s.list("critical_issues"),
		Recommendations:    s.list("recommendations"),
		ApprovalStatus:     s.scalar("approval_status", ApprovalPending),
		ApprovalConditions: s.list("approval_conditions"),
	}
	if len(checks) > 0 {
		g.OverallComplianceScore = math.Round(float64(passed)/float64(len(checks))*100) / 10
	}
	return g
}
