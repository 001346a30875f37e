package parser

// Validation is the parsed prevalidation response.
type Validation struct {
	Status            string   `json:"status" yaml:"status"`
	Confidence        float64  `json:"confidence" yaml:"confidence"`
	CanProceed        bool     `json:"can_proceed" yaml:"can_proceed"`
	RequiresAttention bool     `json:"requires_attention" yaml:"requires_attention"`
	Risks             []string `json:"risks" yaml:"risks"`
	Recommendations   []string `json:"recommendations" yaml:"recommendations"`
	NextSteps         []string `json:"next_steps" yaml:"next_steps"`
	// Details is the raw response text.
	Details string `json:"details" yaml:"details"`
}

var validationSchema = Schema{
	{Token: "VALIDATION_STATUS:", Field: "status", Kind: Scalar},
	{Token: "CONFIDENCE_SCORE:", Field: "confidence", Kind: Number},
	{Token: "RISK_IDENTIFICATION:", Field: "risks", Kind: List},
	{Token: "RECOMMENDATIONS:", Field: "recommendations", Kind: List},
	{Token: "NEXT_STEPS:", Field: "next_steps", Kind: List},
}

// ParseValidation decodes a prevalidation response. A run may proceed on
// PASS or WARNING; WARNING and FAIL require attention.
func ParseValidation(text string) Validation {
	s := validationSchema.Parse(text)

	status := s.scalar("status", "UNKNOWN")
	return Validation{
		Status:            status,
		Confidence:        s.Numbers["confidence"],
		CanProceed:        status == "PASS" || status == "WARNING",
		RequiresAttention: status == "WARNING" || status == "FAIL",
		Risks:             s.list("risks"),
		Recommendations:   s.list("recommendations"),
		NextSteps:         s.list("next_steps"),
		Details:           text,
	}
}

func (s Sections) scalar(field, def string) string {
	if v, ok := s.Scalars[field]; ok && v != "" {
		return v
	}
	return def
}

// list returns a copy so decoded records never share backing arrays.
func (s Sections) list(field string) []string {
	return append([]string{}, s.Lists[field]...)
}

func (s Sections) pairs(field string) map[string]string {
	out := map[string]string{}
	for k, v := range s.Pairs[field] {
		out[k] = v
	}
	return out
}
