package parser

import "strings"

// Evaluation is the parsed code review.
type Evaluation struct {
	OverallScore    int            `json:"overall_score" yaml:"overall_score"`
	Scores          map[string]int `json:"scores" yaml:"scores"`
	Recommendations []string       `json:"recommendations" yaml:"recommendations"`
	Issues          []string       `json:"issues" yaml:"issues"`
}

// EvaluationCategories are the scored review categories, in report order.
var EvaluationCategories = []string{
	"CODE_QUALITY", "SECURITY", "PERFORMANCE", "MAINTAINABILITY", "TESTABILITY", "DOCUMENTATION",
}

var evaluationSchema = func() Schema {
	s := Schema{{Token: "OVERALL_SCORE:", Field: "overall_score", Kind: Score}}
	for _, c := range EvaluationCategories {
		s = append(s, Entry{Token: c + ":", Field: strings.ToLower(c), Kind: Score})
	}
	return append(s,
		Entry{Token: "RECOMMENDATIONS:", Field: "recommendations", Kind: List},
		Entry{Token: "ISSUES_FOUND:", Field: "issues", Kind: List},
	)
}()

// ParseEvaluation decodes a review response. Only categories present in
// the response appear in Scores.
func ParseEvaluation(text string) Evaluation {
	s := evaluationSchema.Parse(text)

	scores := map[string]int{}
	for _, c := range EvaluationCategories {
		field := strings.ToLower(c)
		if v, ok := s.Numbers[field]; ok {
			scores[field] = int(v)
		}
	}
	return Evaluation{
		OverallScore:    int(s.Numbers["overall_score"]),
		Scores:          scores,
		Recommendations: s.list("recommendations"),
		Issues:          s.list("issues"),
	}
}
