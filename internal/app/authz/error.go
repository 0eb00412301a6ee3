package authz

import (
	"fmt"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
)

const (
	FieldRoles       apperr.Field = "roles"
	FieldPages       apperr.Field = "pages"
	FieldMenu        apperr.Field = "menu"
	FieldDefaultPage apperr.Field = "default_page"
	FieldLoginPath   apperr.Field = "login_path"
	FieldRole        apperr.Field = "role"
	FieldPage        apperr.Field = "page"
)

const (
	CodeInvalidPolicy apperr.Code = "authz/invalid_policy"
	CodeUnknownRole   apperr.Code = "authz/unknown_role"
)

// ErrInvalidPolicy matches any policy validation failure with errors.Is.
func ErrInvalidPolicy() error {
	return apperr.New("invalid authorization policy", CodeInvalidPolicy, apperr.ClassInternal, apperr.LogLevelError)
}

func ErrUnknownRole(name string) error {
	return apperr.New(fmt.Sprintf("unknown role %q", name), CodeUnknownRole, apperr.ClassBadRequest, apperr.LogLevelWarn).
		WithViolation(apperr.Violation{Field: FieldRole, Rule: apperr.RuleNotFound})
}

func invalidPolicy(field apperr.Field, rule apperr.Rule, detail string) error {
	return apperr.New("invalid authorization policy", CodeInvalidPolicy, apperr.ClassInternal, apperr.LogLevelError).
		WithDetail(detail).
		WithViolation(apperr.Violation{Field: field, Rule: rule})
}
