package manifest

import "testing"

func TestComputeDrift_LocalOnly(t *testing.T) {
	local := New()
	local.ensureService("payments")["NEW_KEY"] = "value"
	cloud := New()

	drift := ComputeDrift(local, cloud)
	if len(drift.LocalOnly) != 1 {
		t.Fatalf("LocalOnly = %d entries, want 1", len(drift.LocalOnly))
	}
	entry := drift.LocalOnly[0]
	if entry.Key != "NEW_KEY" || entry.Service != "payments" || entry.LocalValue != "value" {
		t.Errorf("unexpected LocalOnly entry: %+v", entry)
	}
	if len(drift.CloudOnly) != 0 || len(drift.Modified) != 0 {
		t.Error("expected no CloudOnly or Modified entries")
	}
}

func TestComputeDrift_CloudOnly(t *testing.T) {
	local := New()
	cloud := New()
	cloud.ensureService("payments")["REMOTE_KEY"] = "remote-value"

	drift := ComputeDrift(local, cloud)
	if len(drift.CloudOnly) != 1 {
		t.Fatalf("CloudOnly = %d entries, want 1", len(drift.CloudOnly))
	}
	entry := drift.CloudOnly[0]
	if entry.Key != "REMOTE_KEY" || entry.CloudValue != "remote-value" {
		t.Errorf("unexpected CloudOnly entry: %+v", entry)
	}
}

func TestComputeDrift_Modified(t *testing.T) {
	local := New()
	local.ensureService("payments")["KEY"] = "local-value"
	cloud := New()
	cloud.ensureService("payments")["KEY"] = "cloud-value"

	drift := ComputeDrift(local, cloud)
	if len(drift.Modified) != 1 {
		t.Fatalf("Modified = %d entries, want 1", len(drift.Modified))
	}
	entry := drift.Modified[0]
	if entry.LocalValue != "local-value" || entry.CloudValue != "cloud-value" {
		t.Errorf("unexpected Modified entry: %+v", entry)
	}
}

func TestComputeDrift_ScopedTrees(t *testing.T) {
	local := New()
	local.ensureScopedService(ScopeProduction, "payments")["KEY"] = "local-prod"
	cloud := New()
	cloud.ensureScopedService(ScopeProduction, "payments")["KEY"] = "cloud-prod"

	drift := ComputeDrift(local, cloud)
	if len(drift.Modified) != 1 {
		t.Fatalf("Modified = %d entries, want 1", len(drift.Modified))
	}
	entry := drift.Modified[0]
	if entry.Scope != "production" {
		t.Errorf("Scope = %q, want production", entry.Scope)
	}
	if entry.DisplayName() != "production/payments/KEY" {
		t.Errorf("DisplayName() = %q, want production/payments/KEY", entry.DisplayName())
	}
}

func TestComputeDrift_NoDrift(t *testing.T) {
	local := New()
	local.ensureService("payments")["KEY"] = "same"
	cloud := New()
	cloud.ensureService("payments")["KEY"] = "same"

	drift := ComputeDrift(local, cloud)
	if len(drift.LocalOnly) != 0 || len(drift.CloudOnly) != 0 || len(drift.Modified) != 0 {
		t.Errorf("expected no drift, got %+v", drift)
	}
}

func TestComputeDrift_NilManifests(t *testing.T) {
	drift := ComputeDrift(nil, nil)
	if len(drift.LocalOnly) != 0 || len(drift.CloudOnly) != 0 || len(drift.Modified) != 0 {
		t.Errorf("expected no drift for two nil manifests, got %+v", drift)
	}
}

func TestDriftEntry_DisplayName_DefaultTree(t *testing.T) {
	entry := DriftEntry{Key: "KEY", Service: "payments"}
	if entry.DisplayName() != "payments/KEY" {
		t.Errorf("DisplayName() = %q, want payments/KEY", entry.DisplayName())
	}
}
