package sdk

import (
	"context"
	"testing"

	"github.com/dotsetlabs/axion/manifest"
)

func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	store := manifest.NewStore(dir)
	if _, err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	m := manifest.New()
	engine := manifest.NewEngine(m, nil)
	if err := engine.SetVariable("API_KEY", "secret-value", "payments", nil); err != nil {
		t.Fatalf("SetVariable() error = %v", err)
	}
	if err := store.Save(m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	resetCache()
	t.Cleanup(resetCache)
	return dir
}

func TestClient_GetAll(t *testing.T) {
	dir := setupProject(t)
	client := CreateClient(Options{WorkDir: dir, Service: "payments", Scope: manifest.ScopeDevelopment})

	vars, err := client.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if vars["API_KEY"] != "secret-value" {
		t.Errorf("API_KEY = %q, want secret-value", vars["API_KEY"])
	}
}

func TestClient_Get(t *testing.T) {
	dir := setupProject(t)
	client := CreateClient(Options{WorkDir: dir, Service: "payments", Scope: manifest.ScopeDevelopment})

	v, ok, err := client.Get(context.Background(), "API_KEY")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || v != "secret-value" {
		t.Errorf("Get() = (%q, %v), want (secret-value, true)", v, ok)
	}

	_, ok, err = client.Get(context.Background(), "MISSING")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get(MISSING) = true, want false")
	}
}

func TestClient_Has(t *testing.T) {
	dir := setupProject(t)
	client := CreateClient(Options{WorkDir: dir, Service: "payments", Scope: manifest.ScopeDevelopment})

	has, err := client.Has(context.Background(), "API_KEY")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if !has {
		t.Error("Has(API_KEY) = false, want true")
	}
}

func TestClient_GetAll_DefensiveCopy(t *testing.T) {
	dir := setupProject(t)
	client := CreateClient(Options{WorkDir: dir, Service: "payments", Scope: manifest.ScopeDevelopment})

	first, err := client.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	first["API_KEY"] = "mutated"

	second, err := client.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() second call error = %v", err)
	}
	if second["API_KEY"] != "secret-value" {
		t.Error("mutating one GetAll() result affected a later call")
	}
}

func TestClient_Reload_PicksUpChanges(t *testing.T) {
	dir := setupProject(t)
	client := CreateClient(Options{WorkDir: dir, Service: "payments", Scope: manifest.ScopeDevelopment})

	if _, err := client.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}

	store := manifest.NewStore(dir)
	m, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	engine2 := manifest.NewEngine(m, nil)
	if err := engine2.SetVariable("API_KEY", "rotated-value", "payments", nil); err != nil {
		t.Fatalf("SetVariable() error = %v", err)
	}
	if err := store.Save(m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := client.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if reloaded["API_KEY"] != "rotated-value" {
		t.Errorf("Reload() API_KEY = %q, want rotated-value", reloaded["API_KEY"])
	}
}
