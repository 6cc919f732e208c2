package executor

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Valid values for Environment.PathBehavior
const (
	PathPrepend = "prepend"
	PathAppend  = "append"
	PathReplace = "replace"
)

// Environment describes how the environment of a child process is assembled
type Environment struct {
	// Base is the inherited environment in KEY=VALUE form. Nil means os.Environ().
	Base []string

	// Defaults apply on top of Base, below per-command overrides
	Defaults map[string]string

	// SearchPaths are merged into PATH according to PathBehavior
	SearchPaths  []string
	PathBehavior string
}

// Build merges overrides into the environment. Overrides win on key collision.
func (e Environment) Build(overrides map[string]string) []string {
	base := e.Base
	if base == nil {
		base = os.Environ()
	}

	envMap := make(map[string]string, len(base)+len(e.Defaults)+len(overrides))
	for _, kv := range base {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}
	for k, v := range e.Defaults {
		envMap[k] = v
	}
	for k, v := range overrides {
		envMap[k] = v
	}

	if len(e.SearchPaths) > 0 {
		envMap["PATH"] = mergePath(envMap["PATH"], e.SearchPaths, e.PathBehavior)
	}

	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, envMap[k]))
	}

	zap.S().Debugw("environment variables set",
		"PATH", envMap["PATH"],
		"path_behavior", e.PathBehavior,
		"override_count", len(overrides))

	return env
}

func mergePath(path string, searchPaths []string, behavior string) string {
	sep := string(os.PathListSeparator)
	extra := strings.Join(searchPaths, sep)

	switch behavior {
	case PathReplace:
		return extra
	case PathAppend:
		if path == "" {
			return extra
		}
		return path + sep + extra
	default:
		if path == "" {
			return extra
		}
		return extra + sep + path
	}
}

// lookupEnv returns the value of key in a KEY=VALUE list
func lookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return strings.TrimPrefix(env[i], prefix), true
		}
	}
	return "", false
}
