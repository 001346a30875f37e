package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var degenerateInputs = map[string]string{
	"empty":          "",
	"newline":        "\n",
	"no headers":     "Sure! Here is my analysis.\nEverything looks fine.",
	"unknown header": "SOMETHING_ELSE:\n- item\n",
	"bullets only":   "- a\n- b\n• c",
}

func TestSchemaParse(t *testing.T) {
	schema := Schema{
		{Token: "STATUS:", Field: "status", Kind: Scalar},
		{Token: "SCORE:", Field: "score", Kind: Number},
		{Token: "ITEMS:", Field: "items", Kind: List},
		{Token: "BODY:", Field: "body", Kind: Text},
		{Token: "META:", Field: "meta", Kind: Pairs},
		{Token: "CHECK:", Field: "check", Kind: Verdict},
	}
	text := `preamble is dropped
- so is this bullet
STATUS: PASS
ITEMS:
- first
  • second

not a bullet
SCORE: 0.75
- third
OTHER_SECTION:
- dropped
META:
- Owner: Platform team
- broken line
BODY:
` + "```xml" + `
<project>

  <name>demo</name>
</project>
` + "```" + `
CHECK: WARNING - needs review
`
	s := schema.Parse(text)

	assert.Equal(t, "PASS", s.Scalars["status"])
	assert.Equal(t, 0.75, s.Numbers["score"])
	assert.Equal(t, []string{"first", "second", "third"}, s.Lists["items"])
	assert.Equal(t, map[string]string{"Owner": "Platform team"}, s.Pairs["meta"])
	assert.Equal(t, "<project>\n\n  <name>demo</name>\n</project>\n", s.Texts["body"])
	assert.Equal(t, VerdictValue{Status: "WARNING", Explanation: "needs review"}, s.Verdicts["check"])
	assert.True(t, s.Has("items"))
	assert.False(t, s.Has("missing"))
}

func TestSchemaParse_malformedNumbersDefaultToZero(t *testing.T) {
	schema := Schema{
		{Token: "SCORE:", Field: "score", Kind: Number},
		{Token: "RANK:", Field: "rank", Kind: Score},
	}
	s := schema.Parse("SCORE: high\nRANK: eight - solid")

	assert.Equal(t, 0.0, s.Numbers["score"])
	assert.Equal(t, 0.0, s.Numbers["rank"])
	assert.True(t, s.Has("score"))
	assert.True(t, s.Has("rank"))
}

func TestParseValidation(t *testing.T) {
	tests := map[string]struct {
		text      string
		status    string
		proceed   bool
		attention bool
	}{
		"pass":    {text: "VALIDATION_STATUS: PASS\nCONFIDENCE_SCORE: 0.9", status: "PASS", proceed: true},
		"warning": {text: "VALIDATION_STATUS: WARNING", status: "WARNING", proceed: true, attention: true},
		"fail":    {text: "VALIDATION_STATUS: FAIL", status: "FAIL", attention: true},
		"missing": {text: "nothing useful", status: "UNKNOWN"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v := ParseValidation(tt.text)
			assert.Equal(t, tt.status, v.Status)
			assert.Equal(t, tt.proceed, v.CanProceed)
			assert.Equal(t, tt.attention, v.RequiresAttention)
			assert.Equal(t, tt.text, v.Details)
		})
	}

	v := ParseValidation("VALIDATION_STATUS: PASS\nCONFIDENCE_SCORE: 0.87\nRISK_IDENTIFICATION:\n- scope creep\nNEXT_STEPS:\n- proceed")
	assert.Equal(t, 0.87, v.Confidence)
	assert.Equal(t, []string{"scope creep"}, v.Risks)
	assert.Equal(t, []string{"proceed"}, v.NextSteps)
}

func TestParseBusinessContext(t *testing.T) {
	text := `BUSINESS_DOMAIN:
- Primary Domain: E-commerce
- Use Case: Online shoe store
CORE_ENTITIES:
- Customer: a buyer
- Order: a purchase
ENTITY_RELATIONSHIPS:
- Customer places Order
INTEGRATION_POINTS:
- Payment gateway
SUCCESS_CRITERIA:
- Functional: customers can check out
- Business: conversion above 3%
`
	bc := ParseBusinessContext(text)

	assert.Equal(t, "E-commerce", bc.Domain)
	assert.Equal(t, "Online shoe store", bc.UseCase)
	assert.Equal(t, []string{"Customer: a buyer", "Order: a purchase"}, bc.Entities)
	assert.Equal(t, []string{"Payment gateway"}, bc.Integrations)
	assert.Equal(t, "conversion above 3%", bc.SuccessCriteria["Business"])
	assert.Empty(t, bc.Processes)
	assert.NotNil(t, bc.TechnicalImplications)
}

func TestParseEvaluation(t *testing.T) {
	text := `OVERALL_SCORE: 7
CODE_QUALITY: 8 - clean
SECURITY: 6 - missing input validation
PERFORMANCE: n/a - not measured
RECOMMENDATIONS:
- add tests
ISSUES_FOUND:
- no auth on endpoints
`
	e := ParseEvaluation(text)

	assert.Equal(t, 7, e.OverallScore)
	assert.Equal(t, map[string]int{"code_quality": 8, "security": 6, "performance": 0}, e.Scores)
	assert.Equal(t, []string{"add tests"}, e.Recommendations)
	assert.Equal(t, []string{"no auth on endpoints"}, e.Issues)
}

func TestParseEvaluation_malformedOutput(t *testing.T) {
	e := ParseEvaluation("I could not review this code, sorry.\nPlease resend.")

	assert.Equal(t, Evaluation{
		OverallScore:    0,
		Scores:          map[string]int{},
		Recommendations: []string{},
		Issues:          []string{},
	}, e)
}

func TestParseDependencies(t *testing.T) {
	text := `CORE_DEPENDENCIES:
- github.com/gin-gonic/gin: v1.10.0 - HTTP framework
DATABASE_DEPENDENCIES:
- gorm.io/gorm: v1.25.0 - ORM
- gorm.io/driver/postgres: v1.5.0 - driver
TESTING_DEPENDENCIES:
- github.com/stretchr/testify: v1.9.0 - assertions
DEPENDENCY_FILE_CONTENT:
` + "```" + `
module github.com/company/shop

go 1.22
` + "```"
	d := ParseDependencies(text, "go-mod")

	assert.Len(t, d.Core, 1)
	assert.Len(t, d.Database, 2)
	assert.Empty(t, d.Security)
	assert.Equal(t, 4, d.TotalDependencies)
	assert.Equal(t, "go-mod", d.BuildTool)
	assert.Equal(t, "module github.com/company/shop\n\ngo 1.22\n", d.FileContent)
}

func TestParseGuardrails(t *testing.T) {
	text := `GUARDRAILS_STATUS: WARNING
SECURITY_COMPLIANCE: PASS - inputs validated
CODE_QUALITY_COMPLIANCE: PASS
BUSINESS_LOGIC_COMPLIANCE: WARNING - audit trail partial
CRITICAL_ISSUES:
- none
APPROVAL_STATUS: CONDITIONAL
APPROVAL_CONDITIONS:
- add audit logging
`
	g := ParseGuardrails(text)

	assert.Equal(t, "WARNING", g.Status)
	assert.Equal(t, ApprovalConditional, g.ApprovalStatus)
	assert.True(t, g.Approved())
	require.Len(t, g.ComplianceChecks, 3)
	assert.Equal(t, VerdictValue{Status: "PASS", Explanation: "inputs validated"}, g.ComplianceChecks["security_compliance"])
	assert.Equal(t, "", g.ComplianceChecks["code_quality_compliance"].Explanation)
	assert.Equal(t, 6.7, g.OverallComplianceScore)
	assert.Equal(t, []string{"add audit logging"}, g.ApprovalConditions)
}

func TestParseGuardrails_rejected(t *testing.T) {
	g := ParseGuardrails("APPROVAL_STATUS: REJECTED\nSECURITY_COMPLIANCE: FAIL - sql injection")
	assert.False(t, g.Approved())
	assert.Equal(t, 0.0, g.OverallComplianceScore)
}

func TestDecoders_totalFieldContract(t *testing.T) {
	for name, text := range degenerateInputs {
		t.Run(name, func(t *testing.T) {
			require.NotPanics(t, func() {
				v := ParseValidation(text)
				assert.Equal(t, "UNKNOWN", v.Status)
				assert.NotNil(t, v.Risks)
				assert.NotNil(t, v.Recommendations)
				assert.NotNil(t, v.NextSteps)

				bc := ParseBusinessContext(text)
				assert.Equal(t, "unknown", bc.Domain)
				assert.NotNil(t, bc.Entities)
				assert.NotNil(t, bc.Processes)
				assert.NotNil(t, bc.Integrations)
				assert.NotNil(t, bc.BusinessRules)
				assert.NotNil(t, bc.UserPersonas)
				assert.NotNil(t, bc.SuccessCriteria)
				assert.NotNil(t, bc.TechnicalImplications)

				e := ParseEvaluation(text)
				assert.Equal(t, 0, e.OverallScore)
				assert.NotNil(t, e.Scores)
				assert.NotNil(t, e.Recommendations)
				assert.NotNil(t, e.Issues)

				d := ParseDependencies(text, "maven")
				assert.Equal(t, 0, d.TotalDependencies)
				assert.NotNil(t, d.Core)
				assert.NotNil(t, d.Build)

				g := ParseGuardrails(text)
				assert.Equal(t, "UNKNOWN", g.Status)
				assert.Equal(t, ApprovalPending, g.ApprovalStatus)
				assert.NotNil(t, g.ComplianceChecks)
				assert.NotNil(t, g.CriticalIssues)
				assert.NotNil(t, g.ApprovalConditions)
			})
		})
	}
}

func TestDecoders_idempotent(t *testing.T) {
	text := "OVERALL_SCORE: 9\nSECURITY: 9 - ok\nRECOMMENDATIONS:\n- ship it\nGUARDRAILS_STATUS: PASS\nAPPROVAL_STATUS: APPROVED"

	assert.Equal(t, ParseEvaluation(text), ParseEvaluation(text))
	assert.Equal(t, ParseGuardrails(text), ParseGuardrails(text))
	assert.Equal(t, ParseBusinessContext(text), ParseBusinessContext(text))
	assert.Equal(t, ParseDependencies(text, "pip"), ParseDependencies(text, "pip"))
	assert.Equal(t, ParseValidation(text), ParseValidation(text))
}
