package rules

import (
	"testing"
	"time"
)

func TestNotNull(t *testing.T) {
	t.Parallel()

	specs := map[string][]RuleSpec{
		"total": {{RuleType: "not_null", Message: "total is required"}},
	}

	cases := []struct {
		name string
		data map[string]any
		want bool
	}{
		{"missing field", map[string]any{}, false},
		{"nil value", map[string]any{"total": nil}, false},
		{"empty string", map[string]any{"total": ""}, false},
		{"zero passes", map[string]any{"total": 0.0}, true},
		{"false passes", map[string]any{"total": false}, true},
		{"value present", map[string]any{"total": 123.4}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(tc.data, specs)
			if got["total"][0].Success != tc.want {
				t.Fatalf("not_null on %v = %v, want %v", tc.data["total"], got["total"][0].Success, tc.want)
			}
		})
	}
}

func TestIsNumberNormalizesCommaDecimals(t *testing.T) {
	t.Parallel()

	specs := map[string][]RuleSpec{"amount": {{RuleType: "is_number"}}}

	cases := []struct {
		value any
		want  bool
	}{
		{"1.234,56", true},
		{"1234.56", true},
		{"42", true},
		{42.0, true},
		{"abc", false},
		{"", false},
		{nil, false},
	}
	for _, tc := range cases {
		got := Validate(map[string]any{"amount": tc.value}, specs)
		if got["amount"][0].Success != tc.want {
			t.Fatalf("is_number(%v) = %v, want %v", tc.value, got["amount"][0].Success, tc.want)
		}
	}
}

func TestComparisonOperators(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value any
		rule  RuleSpec
		want  bool
	}{
		{"gt strict above", 101.0, RuleSpec{RuleType: "comparison", Operator: "gt", CompareValue: 100.0}, true},
		{"gt strict at boundary", 100.0, RuleSpec{RuleType: "comparison", Operator: "gt", CompareValue: 100.0}, false},
		{"gte at boundary", 100.0, RuleSpec{RuleType: "comparison", Operator: "gte", CompareValue: 100.0}, true},
		{"lt below", 99.0, RuleSpec{RuleType: "comparison", Operator: "lt", CompareValue: 100.0}, true},
		{"lte above fails", 101.0, RuleSpec{RuleType: "comparison", Operator: "lte", CompareValue: 100.0}, false},
		{"eq default", "abc", RuleSpec{RuleType: "comparison", CompareValue: "abc"}, true},
		{"neq", "abc", RuleSpec{RuleType: "comparison", Operator: "neq", CompareValue: "xyz"}, true},
		{"numeric string coercion", "100", RuleSpec{RuleType: "comparison", Operator: "gte", CompareValue: "99"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(map[string]any{"f": tc.value}, map[string][]RuleSpec{"f": {tc.rule}})
			if got["f"][0].Success != tc.want {
				t.Fatalf("got %v, want %v", got["f"][0].Success, tc.want)
			}
		})
	}
}

func TestComparisonAgainstOtherField(t *testing.T) {
	t.Parallel()

	data := map[string]any{"gross": 110.0, "net": 100.0}
	specs := map[string][]RuleSpec{
		"gross": {{RuleType: "comparison", Operator: "gt", CompareField: "net"}},
	}
	got := Validate(data, specs)
	if !got["gross"][0].Success {
		t.Fatal("gross > net should pass")
	}
}

func TestCompareDate(t *testing.T) {
	t.Parallel()

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	cases := []struct {
		name  string
		value any
		rule  RuleSpec
		want  bool
	}{
		{"before now", yesterday, RuleSpec{RuleType: "compare_date", Operator: "lt"}, true},
		{"after now fails lt", tomorrow, RuleSpec{RuleType: "compare_date", Operator: "lt"}, false},
		{"offset days", tomorrow, RuleSpec{RuleType: "compare_date", Operator: "lt", OffsetValue: 7.0, OffsetUnit: "days"}, true},
		{"fixed target", "2024-06-01", RuleSpec{RuleType: "compare_date", Operator: "gt", CompareValue: "2024-01-01"}, true},
		{"unparseable fails", "not-a-date", RuleSpec{RuleType: "compare_date", Operator: "lt"}, false},
		{"empty fails", "", RuleSpec{RuleType: "compare_date", Operator: "lt"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(map[string]any{"d": tc.value}, map[string][]RuleSpec{"d": {tc.rule}})
			if got["d"][0].Success != tc.want {
				t.Fatalf("got %v, want %v", got["d"][0].Success, tc.want)
			}
		})
	}
}

func TestCompareDateAgainstField(t *testing.T) {
	t.Parallel()

	data := map[string]any{"issued": "2024-01-10", "due": "2024-02-10"}
	specs := map[string][]RuleSpec{
		"due": {{RuleType: "compare_date", Operator: "gt", CompareField: "issued"}},
	}
	if got := Validate(data, specs); !got["due"][0].Success {
		t.Fatal("due after issued should pass")
	}
}

func TestFormulaRule(t *testing.T) {
	t.Parallel()

	specs := map[string][]RuleSpec{
		"total": {{RuleType: "formula", Formula: "subtotal + tax", Message: "total mismatch"}},
	}

	pass := Validate(map[string]any{"total": 100.0, "subtotal": 90.0, "tax": 10.0}, specs)
	if !pass["total"][0].Success {
		t.Fatal("total = subtotal + tax should pass")
	}

	fail := Validate(map[string]any{"total": 99.0, "subtotal": 90.0, "tax": 10.0}, specs)
	if fail["total"][0].Success {
		t.Fatal("total off by 1 should fail")
	}
	if fail["total"][0].Message != "total mismatch" {
		t.Fatalf("message = %q", fail["total"][0].Message)
	}

	// Missing operands coerce to zero rather than erroring.
	zero := Validate(map[string]any{"total": 0.0, "subtotal": nil}, map[string][]RuleSpec{
		"total": {{RuleType: "formula", Formula: "subtotal + tax"}},
	})
	if !zero["total"][0].Success {
		t.Fatal("0 = 0 + 0 should pass with missing operands")
	}
}

func TestRegexRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value any
		rule  RuleSpec
		want  bool
	}{
		{"email ok", "a@b.co", RuleSpec{RuleType: "regex", PredefinedRegex: "email"}, true},
		{"email bad", "not-an-email", RuleSpec{RuleType: "regex", PredefinedRegex: "email"}, false},
		{"phone ok", "+595981123456", RuleSpec{RuleType: "regex", PredefinedRegex: "phone"}, true},
		{"phone too short", "123", RuleSpec{RuleType: "regex", PredefinedRegex: "phone"}, false},
		{"ruc ok", "80012345-6", RuleSpec{RuleType: "regex", PredefinedRegex: "paraguay_ruc"}, true},
		{"ruc bad", "80012345", RuleSpec{RuleType: "regex", PredefinedRegex: "paraguay_ruc"}, false},
		{"custom ok", "INV-001", RuleSpec{RuleType: "regex", Regex: `^INV-\d+$`}, true},
		{"custom bad pattern fails", "x", RuleSpec{RuleType: "regex", Regex: `([`}, false},
		{"no pattern passes", "anything", RuleSpec{RuleType: "regex"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(map[string]any{"f": tc.value}, map[string][]RuleSpec{"f": {tc.rule}})
			if got["f"][0].Success != tc.want {
				t.Fatalf("got %v, want %v", got["f"][0].Success, tc.want)
			}
		})
	}
}

func TestUnknownRuleTypePasses(t *testing.T) {
	t.Parallel()

	got := Validate(map[string]any{"f": "x"}, map[string][]RuleSpec{
		"f": {{RuleType: "future_rule_type"}},
	})
	if !got["f"][0].Success {
		t.Fatal("unknown rule type must not fail the field")
	}
}

func TestNestedFieldPath(t *testing.T) {
	t.Parallel()

	data := map[string]any{"vendor": map[string]any{"tax_id": "80012345-6"}}
	specs := map[string][]RuleSpec{
		"vendor.tax_id": {{RuleType: "not_null"}, {RuleType: "regex", PredefinedRegex: "paraguay_ruc"}},
	}
	got := Validate(data, specs)
	if len(got["vendor.tax_id"]) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got["vendor.tax_id"]))
	}
	for i, r := range got["vendor.tax_id"] {
		if !r.Success {
			t.Fatalf("rule %d failed", i)
		}
	}
}

func TestAllPassed(t *testing.T) {
	t.Parallel()

	if !AllPassed(Results{"a": {{Success: true}, {Success: true}}}) {
		t.Fatal("all-true set must pass")
	}
	if AllPassed(Results{"a": {{Success: true}}, "b": {{Success: false}}}) {
		t.Fatal("one failure must fail the set")
	}
	if !AllPassed(Results{}) {
		t.Fatal("empty result set passes vacuously")
	}
}

func TestBadRuleDoesNotAbortSiblings(t *testing.T) {
	t.Parallel()

	got := Validate(map[string]any{"f": "10"}, map[string][]RuleSpec{
		"f": {
			{RuleType: "comparison", Operator: "gt", CompareValue: func() {}},
			{RuleType: "not_null"},
		},
	})
	if got["f"][0].Success {
		t.Fatal("uncomparable target should fail its rule")
	}
	if !got["f"][1].Success {
		t.Fatal("sibling rule should still run and pass")
	}
}
