// Package filter evaluates AIP-160 filter expressions against questions.
package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

// Filter is a parsed expression. The zero value and nil match everything.
type Filter struct {
	e *expr.Expr
}

// QuestionDeclarations returns the identifiers a question filter may reference.
func QuestionDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("text", filtering.TypeString),
		filtering.DeclareIdent("type", filtering.TypeString),
		filtering.DeclareIdent("category", filtering.TypeString),
		filtering.DeclareIdent("country", filtering.TypeString),
		filtering.DeclareIdent("compliance_area", filtering.TypeString),
		filtering.DeclareIdent("regulatory_context", filtering.TypeString),
		filtering.DeclareIdent("required", filtering.TypeBool),
		filtering.DeclareIdent("needs_curation", filtering.TypeBool),
	)
}

// Parse parses an AIP-160 expression, e.g. `category = "Staffing" AND required = true`.
// Errors wrap common.ErrInvalidInput.
func Parse(filterStr string) (*Filter, error) {
	if strings.TrimSpace(filterStr) == "" {
		return &Filter{}, nil
	}
	decls, err := QuestionDeclarations()
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("%w: parse filter: %v", common.ErrInvalidInput, err)
	}
	return &Filter{e: parsed.CheckedExpr.GetExpr()}, nil
}

// Match reports whether q satisfies the filter. Evaluation errors never match.
func (f *Filter) Match(q entity.Question) bool {
	if f == nil || f.e == nil {
		return true
	}
	ok, err := Evaluate(f.e, QuestionResolver(q))
	return err == nil && ok
}

// Apply returns the questions that match, preserving order.
func (f *Filter) Apply(qs []entity.Question) []entity.Question {
	if f == nil || f.e == nil {
		return qs
	}
	out := make([]entity.Question, 0, len(qs))
	for _, q := range qs {
		if f.Match(q) {
			out = append(out, q)
		}
	}
	return out
}

// QuestionResolver exposes question fields by their filter identifier.
func QuestionResolver(q entity.Question) Resolver {
	return func(name string) (any, bool) {
		switch name {
		case "text":
			return q.Text, true
		case "type":
			return string(q.Type), true
		case "category":
			return q.Category, true
		case "country":
			return q.Country, true
		case "compliance_area":
			return q.ComplianceArea, true
		case "regulatory_context":
			return q.RegulatoryContext, true
		case "required":
			return q.Required, true
		case "needs_curation":
			return q.NeedsCuration, true
		default:
			return nil, false
		}
	}
}
