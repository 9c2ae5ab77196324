package manifest

import "fmt"

// DriftEntry describes a single key's divergence between a local and a
// remote manifest.
type DriftEntry struct {
	Key        string
	Service    string
	Scope      string // empty for the default (non-scoped) tree
	LocalValue string
	CloudValue string
}

// DisplayName returns a scope-qualified name for entries under a scope tree,
// or a plain service/key name for the default tree.
func (e DriftEntry) DisplayName() string {
	if e.Scope == "" {
		return fmt.Sprintf("%s/%s", e.Service, e.Key)
	}
	return fmt.Sprintf("%s/%s/%s", e.Scope, e.Service, e.Key)
}

// Drift is the pure-data result of comparing a local and a remote manifest:
// three disjoint sets over the default tree and every scope tree.
type Drift struct {
	LocalOnly []DriftEntry
	CloudOnly []DriftEntry
	Modified  []DriftEntry
}

type flatKey struct {
	Scope   string
	Service string
	Key     string
}

func flatten(m *Manifest) map[flatKey]string {
	out := map[flatKey]string{}
	if m == nil {
		return out
	}
	for service, vars := range m.Services {
		for key, value := range vars {
			out[flatKey{Service: service, Key: key}] = value
		}
	}
	for scope, services := range m.Scopes {
		for service, vars := range services {
			for key, value := range vars {
				out[flatKey{Scope: scope, Service: service, Key: key}] = value
			}
		}
	}
	return out
}

// ComputeDrift compares local and cloud (either may be nil, meaning an empty
// manifest) and returns the three disjoint sets of spec §4.3.5. The result is
// pure data; ComputeDrift has no side effects.
func ComputeDrift(local, cloud *Manifest) *Drift {
	localFlat := flatten(local)
	cloudFlat := flatten(cloud)

	drift := &Drift{}

	for key, localValue := range localFlat {
		cloudValue, ok := cloudFlat[key]
		entry := DriftEntry{Key: key.Key, Service: key.Service, Scope: key.Scope}
		switch {
		case !ok:
			entry.LocalValue = localValue
			drift.LocalOnly = append(drift.LocalOnly, entry)
		case cloudValue != localValue:
			entry.LocalValue = localValue
			entry.CloudValue = cloudValue
			drift.Modified = append(drift.Modified, entry)
		}
	}

	for key, cloudValue := range cloudFlat {
		if _, ok := localFlat[key]; ok {
			continue
		}
		drift.CloudOnly = append(drift.CloudOnly, DriftEntry{
			Key: key.Key, Service: key.Service, Scope: key.Scope, CloudValue: cloudValue,
		})
	}

	return drift
}
