// Package rules evaluates declarative validation rules against extracted
// document data. Evaluation is stateless: one rule, one field value, plus the
// full data object for cross-field references.
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RuleSpec is one declarative check as stored in document-type configuration.
// CompareValue and OffsetValue come from JSON config and may arrive as string
// or number; they are coerced at evaluation time.
type RuleSpec struct {
	RuleType        string `json:"ruleType"`
	Operator        string `json:"operator,omitempty"`
	CompareValue    any    `json:"compareValue,omitempty"`
	CompareField    string `json:"compareField,omitempty"`
	OffsetValue     any    `json:"offsetValue,omitempty"`
	OffsetUnit      string `json:"offsetUnit,omitempty"`
	Formula         string `json:"formula,omitempty"`
	Regex           string `json:"regex,omitempty"`
	PredefinedRegex string `json:"predefinedRegex,omitempty"`
	Message         string `json:"message,omitempty"`
}

// RuleResult is the outcome of one rule applied to one field.
type RuleResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	RuleType string `json:"ruleType"`
}

// Results maps field path -> outcomes for every rule configured on it.
type Results map[string][]RuleResult

var (
	reEmail       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	rePhone       = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	reParaguayRUC = regexp.MustCompile(`^[0-9]+-[0-9]$`)
)

// Validate applies every configured rule to its field. Rules for one field
// are independent: all are evaluated and reported, in listed order. A panic
// inside a single rule fails that rule only.
func Validate(data map[string]any, specs map[string][]RuleSpec) Results {
	results := make(Results, len(specs))
	for field, fieldRules := range specs {
		out := make([]RuleResult, 0, len(fieldRules))
		value := ValueAtPath(data, field)
		for _, rule := range fieldRules {
			out = append(out, RuleResult{
				Success:  evaluate(value, rule, data),
				Message:  rule.Message,
				RuleType: rule.RuleType,
			})
		}
		results[field] = out
	}
	return results
}

// AllPassed reduces a result set to the overall job-level verdict.
func AllPassed(results Results) bool {
	for _, fieldResults := range results {
		for _, r := range fieldResults {
			if !r.Success {
				return false
			}
		}
	}
	return true
}

// evaluate runs one rule, converting any panic into a failure so a bad rule
// never aborts its siblings.
func evaluate(value any, rule RuleSpec, data map[string]any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	switch rule.RuleType {
	case "not_null":
		return value != nil && value != ""
	case "is_date":
		_, parsed := parseDate(value)
		return parsed
	case "is_number":
		if value == nil || value == "" {
			return false
		}
		_, parsed := toNumber(value)
		return parsed
	case "comparison", "compare_number":
		return checkComparison(value, rule, data)
	case "compare_date":
		return checkDateComparison(value, rule, data)
	case "formula":
		return checkFormula(value, rule, data)
	case "regex":
		return checkRegex(value, rule)
	}
	// Unknown rule types pass; configuration UIs may be ahead of the worker.
	return true
}

// ValueAtPath walks a dotted path through nested maps. Missing segments
// return nil.
func ValueAtPath(data map[string]any, path string) any {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func checkComparison(value any, rule RuleSpec, data map[string]any) bool {
	target := rule.CompareValue
	if rule.CompareField != "" {
		target = ValueAtPath(data, rule.CompareField)
	} else if s, ok := target.(string); ok && s == "today" {
		target = time.Now().Format("2006-01-02")
	}

	vn, vok := toNumber(value)
	tn, tok := toNumber(target)
	if vok && tok {
		return applyNumericOp(rule.Operator, vn, tn)
	}
	return applyStringOp(rule.Operator, stringify(value), stringify(target))
}

func checkDateComparison(value any, rule RuleSpec, data map[string]any) bool {
	if value == nil || value == "" {
		return false
	}

	target := time.Now()
	if rule.CompareField != "" {
		fieldVal := ValueAtPath(data, rule.CompareField)
		if fieldVal == nil || fieldVal == "" {
			return false
		}
		t, ok := parseDate(fieldVal)
		if !ok {
			return false
		}
		target = t
	} else if rule.CompareValue != nil && rule.CompareValue != "today" {
		t, ok := parseDate(rule.CompareValue)
		if !ok {
			return false
		}
		target = t
	}

	if off, ok := toNumber(rule.OffsetValue); ok && off != 0 {
		n := int(off)
		switch rule.OffsetUnit {
		case "days":
			target = target.AddDate(0, 0, n)
		case "months":
			target = target.AddDate(0, n, 0)
		case "years":
			target = target.AddDate(n, 0, 0)
		}
	}

	v, ok := parseDate(value)
	if !ok {
		return false
	}

	switch rule.Operator {
	case "gt":
		return v.After(target)
	case "lt":
		return v.Before(target)
	case "gte":
		return !v.Before(target)
	case "lte":
		return !v.After(target)
	case "neq":
		return !v.Equal(target)
	default:
		return v.Equal(target)
	}
}

// checkFormula evaluates a restricted arithmetic expression over other fields
// and passes when the result is within 0.01 of the field's own value.
// Any evaluation error is a rule failure, never a crash.
func checkFormula(value any, rule RuleSpec, data map[string]any) bool {
	if rule.Formula == "" {
		return true
	}
	vn, ok := toNumber(value)
	if !ok {
		return false
	}
	result, err := EvalFormula(rule.Formula, func(name string) float64 {
		n, _ := toNumber(ValueAtPath(data, name))
		return n // non-numeric and missing fields coerce to 0
	})
	if err != nil {
		return false
	}
	diff := vn - result
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.01
}

func checkRegex(value any, rule RuleSpec) bool {
	s := stringify(value)
	switch rule.PredefinedRegex {
	case "email":
		return reEmail.MatchString(s)
	case "phone":
		return rePhone.MatchString(s)
	case "paraguay_ruc":
		return reParaguayRUC.MatchString(s)
	}
	if rule.Regex != "" {
		re, err := regexp.Compile(rule.Regex)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	}
	return true
}

func applyNumericOp(op string, v, t float64) bool {
	switch op {
	case "gt":
		return v > t
	case "lt":
		return v < t
	case "gte":
		return v >= t
	case "lte":
		return v <= t
	case "neq":
		return v != t
	default:
		return v == t
	}
}

func applyStringOp(op, v, t string) bool {
	switch op {
	case "gt":
		return v > t
	case "lt":
		return v < t
	case "gte":
		return v >= t
	case "lte":
		return v <= t
	case "neq":
		return v != t
	default:
		return v == t
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

func parseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// toNumber coerces config and extracted values to float64. Strings with a
// comma decimal separator are normalized first: "1.234,56" -> 1234.56.
func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if strings.Contains(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
