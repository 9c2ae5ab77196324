package manifest

import (
	"testing"

	"github.com/dotsetlabs/axion/axerrors"
)

func TestResolveTemplates_InlineSubstitution(t *testing.T) {
	vars := map[string]string{
		"HOST": "example.com",
		"URL":  "https://{{HOST}}/api",
	}
	resolved, err := resolveTemplates(vars)
	if err != nil {
		t.Fatalf("resolveTemplates() error = %v", err)
	}
	if resolved["URL"] != "https://example.com/api" {
		t.Errorf("URL = %q, want https://example.com/api", resolved["URL"])
	}
}

func TestResolveTemplates_LegacyRefToken(t *testing.T) {
	vars := map[string]string{
		"SECRET": "s3cr3t",
		"TOKEN":  "Bearer @ref:SECRET",
	}
	resolved, err := resolveTemplates(vars)
	if err != nil {
		t.Fatalf("resolveTemplates() error = %v", err)
	}
	if resolved["TOKEN"] != "Bearer s3cr3t" {
		t.Errorf("TOKEN = %q, want %q", resolved["TOKEN"], "Bearer s3cr3t")
	}
}

func TestResolveTemplates_EscapedLiteralBraces(t *testing.T) {
	vars := map[string]string{
		"LITERAL": `\{{NOT_A_REF}}`,
	}
	resolved, err := resolveTemplates(vars)
	if err != nil {
		t.Fatalf("resolveTemplates() error = %v", err)
	}
	if resolved["LITERAL"] != "{{NOT_A_REF}}" {
		t.Errorf("LITERAL = %q, want literal braces", resolved["LITERAL"])
	}
}

func TestResolveTemplates_MultiHopChain(t *testing.T) {
	vars := map[string]string{
		"A": "1",
		"B": "{{A}}-2",
		"C": "{{B}}-3",
	}
	resolved, err := resolveTemplates(vars)
	if err != nil {
		t.Fatalf("resolveTemplates() error = %v", err)
	}
	if resolved["C"] != "1-2-3" {
		t.Errorf("C = %q, want 1-2-3", resolved["C"])
	}
}

func TestResolveTemplates_MissingReference(t *testing.T) {
	vars := map[string]string{
		"URL": "https://{{MISSING}}/api",
	}
	_, err := resolveTemplates(vars)
	if !axerrors.Is(err, axerrors.KindMissingReference) {
		t.Errorf("resolveTemplates() error = %v, want KindMissingReference", err)
	}
}

func TestResolveTemplates_DirectCircularReference(t *testing.T) {
	vars := map[string]string{
		"A": "{{B}}",
		"B": "{{A}}",
	}
	_, err := resolveTemplates(vars)
	if !axerrors.Is(err, axerrors.KindCircularReference) {
		t.Errorf("resolveTemplates() error = %v, want KindCircularReference", err)
	}
}

func TestResolveTemplates_SelfReference(t *testing.T) {
	vars := map[string]string{
		"A": "{{A}}",
	}
	_, err := resolveTemplates(vars)
	if !axerrors.Is(err, axerrors.KindCircularReference) {
		t.Errorf("resolveTemplates() error = %v, want KindCircularReference", err)
	}
}

func TestResolveTemplates_UnterminatedReferenceIsLiteral(t *testing.T) {
	vars := map[string]string{
		"BROKEN": "prefix {{UNTERMINATED",
	}
	resolved, err := resolveTemplates(vars)
	if err != nil {
		t.Fatalf("resolveTemplates() error = %v", err)
	}
	if resolved["BROKEN"] != "prefix {{UNTERMINATED" {
		t.Errorf("BROKEN = %q, want unchanged literal", resolved["BROKEN"])
	}
}

func TestResolveTemplates_Memoization(t *testing.T) {
	vars := map[string]string{
		"BASE": "root",
		"X":    "{{BASE}}-x",
		"Y":    "{{BASE}}-y",
	}
	resolved, err := resolveTemplates(vars)
	if err != nil {
		t.Fatalf("resolveTemplates() error = %v", err)
	}
	if resolved["X"] != "root-x" || resolved["Y"] != "root-y" {
		t.Errorf("X=%q Y=%q, want root-x/root-y", resolved["X"], resolved["Y"])
	}
}
