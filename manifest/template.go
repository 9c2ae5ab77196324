package manifest

import (
	"strings"

	"github.com/dotsetlabs/axion/axerrors"
)

const maxTemplateDepth = 64

// resolveTemplates resolves every {{NAME}} / @ref:NAME reference in vars
// against vars itself, returning a fresh map. Resolution is memoised per key
// so the total work is bounded by O(N + edges) rather than recomputing a
// shared dependency on every reference to it.
func resolveTemplates(vars map[string]string) (map[string]string, error) {
	memo := map[string]string{}
	result := make(map[string]string, len(vars))

	for key := range vars {
		resolved, err := resolveKey(key, vars, memo, nil)
		if err != nil {
			return nil, err
		}
		result[key] = resolved
	}
	return result, nil
}

func resolveKey(key string, vars map[string]string, memo map[string]string, chain []string) (string, error) {
	if resolved, ok := memo[key]; ok {
		return resolved, nil
	}
	for _, seen := range chain {
		if seen == key {
			return "", axerrors.CircularReference(append(append([]string{}, chain...), key))
		}
	}
	if len(chain) >= maxTemplateDepth {
		return "", axerrors.CircularReference(append(append([]string{}, chain...), key))
	}

	raw, ok := vars[key]
	if !ok {
		return "", axerrors.MissingReference(key)
	}

	resolved, err := substitute(raw, vars, memo, append(chain, key))
	if err != nil {
		return "", err
	}
	memo[key] = resolved
	return resolved, nil
}

// substitute expands every {{NAME}}, @ref:NAME, and \{{ escape in value.
func substitute(value string, vars map[string]string, memo map[string]string, chain []string) (string, error) {
	var sb strings.Builder
	i := 0

	for i < len(value) {
		switch {
		case strings.HasPrefix(value[i:], `\{{`):
			sb.WriteString("{{")
			i += 3

		case strings.HasPrefix(value[i:], "{{"):
			end := strings.Index(value[i+2:], "}}")
			if end == -1 {
				sb.WriteString(value[i:])
				i = len(value)
				continue
			}
			name := value[i+2 : i+2+end]
			resolved, err := resolveKey(name, vars, memo, chain)
			if err != nil {
				return "", err
			}
			sb.WriteString(resolved)
			i += 2 + end + 2

		case strings.HasPrefix(value[i:], "@ref:"):
			j := i + len("@ref:")
			start := j
			for j < len(value) && isIdentChar(value[j]) {
				j++
			}
			if j == start {
				sb.WriteByte(value[i])
				i++
				continue
			}
			name := value[start:j]
			resolved, err := resolveKey(name, vars, memo, chain)
			if err != nil {
				return "", err
			}
			sb.WriteString(resolved)
			i = j

		default:
			sb.WriteByte(value[i])
			i++
		}
	}

	return sb.String(), nil
}

func isIdentChar(b byte) bool {
	return b == '_' ||
		(b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9')
}
