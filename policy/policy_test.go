package policy

import "testing"

func TestParse(t *testing.T) {
	yamlData := []byte(`
protected_keys:
  - DATABASE_PASSWORD
  - STRIPE_SECRET_KEY
validation:
  PORT: "^[0-9]+$"
  DATABASE_URL: "^postgres://"
`)

	cfg, err := Parse(yamlData)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(cfg.ProtectedKeys) != 2 {
		t.Fatalf("ProtectedKeys len = %d, want 2", len(cfg.ProtectedKeys))
	}
	if len(cfg.Validation) != 2 {
		t.Fatalf("Validation len = %d, want 2", len(cfg.Validation))
	}
}

func TestIsProtected(t *testing.T) {
	cfg := &ProjectConfig{ProtectedKeys: []string{"DATABASE_PASSWORD"}}

	if !cfg.IsProtected("DATABASE_PASSWORD") {
		t.Error("expected DATABASE_PASSWORD to be protected")
	}
	if cfg.IsProtected("APP_NAME") {
		t.Error("expected APP_NAME to not be protected")
	}
}

func TestValidate(t *testing.T) {
	cfg := &ProjectConfig{Validation: map[string]string{
		"PORT": "^[0-9]+$",
	}}

	if err := cfg.Validate("PORT", "8080"); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if err := cfg.Validate("PORT", "not-a-port"); err == nil {
		t.Error("Validate() expected error for non-numeric port")
	}
	if err := cfg.Validate("UNCONSTRAINED", "anything"); err != nil {
		t.Errorf("Validate() error = %v, want nil for key with no pattern", err)
	}
}

func TestCompiledValidation_InvalidPattern(t *testing.T) {
	cfg := &ProjectConfig{Validation: map[string]string{
		"BAD": "(unclosed",
	}}

	if _, err := cfg.CompiledValidation(); err == nil {
		t.Error("CompiledValidation() expected error for invalid regex")
	}
	// Cached error returned on second call too.
	if _, err := cfg.CompiledValidation(); err == nil {
		t.Error("CompiledValidation() expected cached error on second call")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg := LoadOrDefault("/nonexistent/path/config.yaml")
	if cfg == nil {
		t.Fatal("LoadOrDefault() returned nil")
	}
	if len(cfg.ProtectedKeys) != 0 || len(cfg.Validation) != 0 {
		t.Error("LoadOrDefault() should return empty config when file is missing")
	}
}
