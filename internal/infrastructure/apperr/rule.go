package apperr

type Rule string

const (
	RuleRequired      Rule = "required"
	RuleInvalidFormat Rule = "invalid_format"
	RuleNotFound      Rule = "not_found"
	RuleForbidden     Rule = "forbidden"
	RuleDuplicate     Rule = "duplicate"
	RuleUnknown       Rule = "unknown"
)
