package gitcollect

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/diffscope/internal/types"
)

// manifestEcosystems maps manifest basenames to their ecosystem tag.
var manifestEcosystems = map[string]string{
	"package.json":   "npm",
	"cargo.toml":     "cargo",
	"pyproject.toml": "python",
}

// IsManifest reports whether path is a dependency manifest diffscope can
// snapshot.
func IsManifest(path string) bool {
	_, ok := manifestEcosystems[strings.ToLower(basename(path))]
	return ok
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ParseManifest decodes one manifest snapshot into the neutral Manifest
// shape the dependency analyzer diffs.
func ParseManifest(path string, data []byte) (*types.Manifest, error) {
	switch strings.ToLower(basename(path)) {
	case "package.json":
		return parsePackageJSON(path, data)
	case "cargo.toml":
		return parseCargoTOML(path, data)
	case "pyproject.toml":
		return parsePyprojectTOML(path, data)
	default:
		return nil, fmt.Errorf("not a recognized manifest: %s", path)
	}
}

func parsePackageJSON(path string, data []byte) (*types.Manifest, error) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &types.Manifest{
		Path:            path,
		Ecosystem:       "npm",
		Dependencies:    pkg.Dependencies,
		DevDependencies: pkg.DevDependencies,
	}, nil
}

// Cargo dependency values are either a bare version string or a table
// with a version key.
func parseCargoTOML(path string, data []byte) (*types.Manifest, error) {
	var cargo struct {
		Dependencies    map[string]any `toml:"dependencies"`
		DevDependencies map[string]any `toml:"dev-dependencies"`
	}
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &types.Manifest{
		Path:            path,
		Ecosystem:       "cargo",
		Dependencies:    flattenCargoDeps(cargo.Dependencies),
		DevDependencies: flattenCargoDeps(cargo.DevDependencies),
	}, nil
}

func flattenCargoDeps(deps map[string]any) map[string]string {
	if len(deps) == 0 {
		return nil
	}
	out := make(map[string]string, len(deps))
	for name, v := range deps {
		switch val := v.(type) {
		case string:
			out[name] = val
		case map[string]any:
			if ver, ok := val["version"].(string); ok {
				out[name] = ver
			} else {
				out[name] = "*"
			}
		default:
			out[name] = "*"
		}
	}
	return out
}

func parsePyprojectTOML(path string, data []byte) (*types.Manifest, error) {
	var py struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies    map[string]any `toml:"dependencies"`
				DevDependencies map[string]any `toml:"dev-dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &py); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	m := &types.Manifest{Path: path, Ecosystem: "python"}

	if len(py.Project.Dependencies) > 0 {
		m.Dependencies = make(map[string]string, len(py.Project.Dependencies))
		for _, spec := range py.Project.Dependencies {
			name, ver := splitRequirement(spec)
			m.Dependencies[name] = ver
		}
	} else if len(py.Tool.Poetry.Dependencies) > 0 {
		m.Dependencies = flattenCargoDeps(py.Tool.Poetry.Dependencies)
		// Poetry lists the interpreter itself as a dependency.
		delete(m.Dependencies, "python")
	}
	if len(py.Tool.Poetry.DevDependencies) > 0 {
		m.DevDependencies = flattenCargoDeps(py.Tool.Poetry.DevDependencies)
	}
	return m, nil
}

// splitRequirement splits a PEP 508 requirement like "requests>=2.31" into
// name and version constraint.
func splitRequirement(spec string) (name, version string) {
	spec = strings.TrimSpace(spec)
	for i, r := range spec {
		if strings.ContainsRune("<>=!~; [", r) {
			return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i:])
		}
	}
	return spec, ""
}
