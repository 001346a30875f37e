package parser

// BusinessContext is the parsed business analysis.
type BusinessContext struct {
	Domain                string            `json:"domain" yaml:"domain"`
	UseCase               string            `json:"use_case" yaml:"use_case"`
	Entities              []string          `json:"entities" yaml:"entities"`
	Processes             []string          `json:"processes" yaml:"processes"`
	Integrations          []string          `json:"integrations" yaml:"integrations"`
	BusinessRules         []string          `json:"business_rules" yaml:"business_rules"`
	UserPersonas          []string          `json:"user_personas" yaml:"user_personas"`
	SuccessCriteria       map[string]string `json:"success_criteria" yaml:"success_criteria"`
	TechnicalImplications map[string]string `json:"technical_implications" yaml:"technical_implications"`
}

var businessSchema = Schema{
	{Token: "BUSINESS_DOMAIN:", Field: "domain", Kind: Keyed, Key: "Primary Domain:"},
	{Token: "CORE_ENTITIES:", Field: "entities", Kind: List},
	{Token: "BUSINESS_PROCESSES:", Field: "processes", Kind: List},
	{Token: "INTEGRATION_POINTS:", Field: "integrations", Kind: List},
	{Token: "BUSINESS_RULES:", Field: "business_rules", Kind: List},
	{Token: "USER_PERSONAS:", Field: "user_personas", Kind: List},
	{Token: "SUCCESS_CRITERIA:", Field: "success_criteria", Kind: Pairs},
	{Token: "TECHNICAL_IMPLICATIONS:", Field: "technical_implications", Kind: Pairs},
}

var useCaseSchema = Schema{
	{Token: "BUSINESS_DOMAIN:", Field: "use_case", Kind: Keyed, Key: "Use Case:"},
}

// ParseBusinessContext decodes a business analysis response. The domain
// defaults to "unknown".
func ParseBusinessContext(text string) BusinessContext {
	s := businessSchema.Parse(text)
	u := useCaseSchema.Parse(text)

	return BusinessContext{
		Domain:                s.scalar("domain", "unknown"),
		UseCase:               u.scalar("use_case", ""),
		Entities:              s.list("entities"),
		Processes:             s.list("processes"),
		Integrations:          s.list("integrations"),
		BusinessRules:         s.list("business_rules"),
		UserPersonas:          s.list("user_personas"),
		SuccessCriteria:       s.pairs("success_criteria"),
		TechnicalImplications: s.pairs("technical_implications"),
	}
}
