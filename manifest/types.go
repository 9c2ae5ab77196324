// Package manifest implements the scoped secret tree: resolution across
// global/service/scope layers, template interpolation, drift comparison
// against a remote replica, and crash-safe key rotation.
package manifest

import (
	"regexp"

	"github.com/dotsetlabs/axion/axerrors"
)

// SchemaVersion is the manifest wire-format generation, independent of the
// sync version counter used for conflict resolution.
const SchemaVersion = "1.0"

// GlobalService is the reserved service name whose variables are visible to
// every other service.
const GlobalService = "_global"

// Scope names a deployment environment a manifest's overlay tree can target.
type Scope string

const (
	ScopeDevelopment Scope = "development"
	ScopeStaging     Scope = "staging"
	ScopeProduction  Scope = "production"
)

// Valid reports whether s is one of the three recognised scope names.
func (s Scope) Valid() bool {
	switch s {
	case ScopeDevelopment, ScopeStaging, ScopeProduction:
		return true
	default:
		return false
	}
}

var (
	variableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	serviceNamePattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// ValidateVariableName reports a *axerrors.AxionError unless name matches
// ^[A-Za-z_][A-Za-z0-9_]*$.
func ValidateVariableName(name string) error {
	if !variableNamePattern.MatchString(name) {
		return axerrors.ValidationFailed(name, "variable name must match ^[A-Za-z_][A-Za-z0-9_]*$")
	}
	return nil
}

// ValidateServiceName reports a *axerrors.AxionError unless name is
// GlobalService or matches ^[A-Za-z][A-Za-z0-9_-]*$.
func ValidateServiceName(name string) error {
	if name == GlobalService {
		return nil
	}
	if !serviceNamePattern.MatchString(name) {
		return axerrors.ValidationFailed(name, "service name must match ^[A-Za-z][A-Za-z0-9_-]*$")
	}
	return nil
}

// Manifest is the decrypted secret tree for a single project.
//
// Version is the sync conflict-resolution counter (monotonic per project);
// it is distinct from SchemaVersion, the wire-format generation.
type Manifest struct {
	Version       int64                                    `json:"version"`
	SchemaVersion string                                   `json:"schema_version"`
	Services      map[string]map[string]string              `json:"services"`
	Scopes        map[string]map[string]map[string]string   `json:"scopes"`
}

// New returns an empty, newly-initialised manifest with the reserved
// _global service already present.
func New() *Manifest {
	return &Manifest{
		Version:       0,
		SchemaVersion: SchemaVersion,
		Services: map[string]map[string]string{
			GlobalService: {},
		},
		Scopes: map[string]map[string]map[string]string{},
	}
}

// Bump increments the sync conflict-resolution counter. Called once per
// mutating operation (SetVariable, a changing RemoveVariable), never on a
// re-encryption-only save such as key rotation.
func (m *Manifest) Bump() {
	m.Version++
}

// ensureService returns (creating if absent) the variable map for service.
func (m *Manifest) ensureService(service string) map[string]string {
	if m.Services == nil {
		m.Services = map[string]map[string]string{}
	}
	if _, ok := m.Services[service]; !ok {
		m.Services[service] = map[string]string{}
	}
	return m.Services[service]
}

// ensureScopedService returns (creating if absent) the variable map for
// service within scope.
func (m *Manifest) ensureScopedService(scope Scope, service string) map[string]string {
	if m.Scopes == nil {
		m.Scopes = map[string]map[string]map[string]string{}
	}
	if _, ok := m.Scopes[string(scope)]; !ok {
		m.Scopes[string(scope)] = map[string]map[string]string{}
	}
	if _, ok := m.Scopes[string(scope)][service]; !ok {
		m.Scopes[string(scope)][service] = map[string]string{}
	}
	return m.Scopes[string(scope)][service]
}

// Clone returns a deep copy of m, so callers can compare or mutate a
// snapshot without affecting the original (e.g. rotation's pre-image check).
func (m *Manifest) Clone() *Manifest {
	clone := &Manifest{
		Version:       m.Version,
		SchemaVersion: m.SchemaVersion,
		Services:      make(map[string]map[string]string, len(m.Services)),
		Scopes:        make(map[string]map[string]map[string]string, len(m.Scopes)),
	}
	for service, vars := range m.Services {
		clone.Services[service] = cloneVars(vars)
	}
	for scope, services := range m.Scopes {
		clone.Scopes[scope] = make(map[string]map[string]string, len(services))
		for service, vars := range services {
			clone.Scopes[scope][service] = cloneVars(vars)
		}
	}
	return clone
}

func cloneVars(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
