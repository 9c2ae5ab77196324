package manifest

import (
	"context"
	"time"

	"github.com/dotsetlabs/axion/axerrors"
	"github.com/dotsetlabs/axion/logging"
	"github.com/dotsetlabs/axion/metrics"
	"github.com/dotsetlabs/axion/policy"
	"github.com/dotsetlabs/axion/utils"
)

// Engine provides the mutation and resolution API over a Manifest. It is the
// primary entry point the SDK surface and sync arbiter build on.
type Engine struct {
	Manifest *Manifest
	Policy   *policy.ProjectConfig

	// LocalOverrides is a process-local flat overlay contributed by an
	// optional .env-style file. It is never persisted into the manifest and
	// never uploaded to the remote store (spec §4.3.2).
	LocalOverrides map[string]string
}

// NewEngine wraps m (created fresh with New() if nil) with the given policy
// (an empty *policy.ProjectConfig{} if nil).
func NewEngine(m *Manifest, projectPolicy *policy.ProjectConfig) *Engine {
	if m == nil {
		m = New()
	}
	if projectPolicy == nil {
		projectPolicy = &policy.ProjectConfig{}
	}
	return &Engine{Manifest: m, Policy: projectPolicy}
}

// SetLocalOverrides installs the process-local override map used by
// GetVariables' final overlay layer.
func (e *Engine) SetLocalOverrides(overrides map[string]string) {
	e.LocalOverrides = overrides
}

// SetVariable validates name and value, consults policy for a bound
// validation pattern, then writes it either into the global/service tree
// (scope == nil) or the scope-qualified tree.
func (e *Engine) SetVariable(name, value, service string, scope *Scope) error {
	if service == "" {
		service = GlobalService
	}
	if err := ValidateVariableName(name); err != nil {
		return err
	}
	if err := ValidateServiceName(service); err != nil {
		return err
	}
	if scope != nil && !scope.Valid() {
		return axerrors.ValidationFailed(string(*scope), "scope must be development, staging, or production")
	}
	if e.Policy != nil {
		if err := e.Policy.Validate(name, value); err != nil {
			return axerrors.Wrap(axerrors.KindValidationFailed, "policy validation", err)
		}
	}

	if scope == nil {
		e.Manifest.ensureService(service)[name] = value
	} else {
		e.Manifest.ensureScopedService(*scope, service)[name] = value
	}
	e.Manifest.Bump()
	logging.Default().LogAudit(context.Background(), "set", service, name, "success")
	return nil
}

// RemoveVariable deletes name from the global/service tree (scope == nil) or
// the scope-qualified tree, reporting whether anything changed.
func (e *Engine) RemoveVariable(name, service string, scope *Scope) (bool, error) {
	if service == "" {
		service = GlobalService
	}
	if err := ValidateVariableName(name); err != nil {
		return false, err
	}

	var vars map[string]string
	if scope == nil {
		vars = e.Manifest.Services[service]
	} else {
		if byService, ok := e.Manifest.Scopes[string(*scope)]; ok {
			vars = byService[service]
		}
	}
	if vars == nil {
		return false, nil
	}
	if _, ok := vars[name]; !ok {
		return false, nil
	}
	delete(vars, name)
	e.Manifest.Bump()
	logging.Default().LogAudit(context.Background(), "remove", service, name, "success")
	return true, nil
}

// GetVariables resolves the final variable map visible to service within
// scope, per the fixed six-layer overlay order of spec §4.3.1:
//
//  1. services[_global]
//  2. scopes[scope][_global]
//  3. services[service]
//  4. scopes[scope][service]
//  5. local overrides
//  6. template resolution pass
func (e *Engine) GetVariables(service string, scope Scope) (vars map[string]string, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		duration := time.Since(start)
		metrics.Global().RecordResolve(string(scope), status, duration)
		logging.Default().LogPerformance(context.Background(), "resolve_variables", map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"service":     service,
			"scope":       string(scope),
			"status":      status,
		})
	}()

	if service == "" {
		service = GlobalService
	}

	layers := []map[string]string{e.Manifest.Services[GlobalService]}
	byScope, scoped := e.Manifest.Scopes[string(scope)]
	if scoped {
		layers = append(layers, byScope[GlobalService])
	}
	if service != GlobalService {
		layers = append(layers, e.Manifest.Services[service])
		if scoped {
			layers = append(layers, byScope[service])
		}
	}
	layers = append(layers, e.LocalOverrides)

	return resolveTemplates(utils.MergeMaps(layers...))
}
