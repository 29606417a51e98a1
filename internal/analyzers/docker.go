package analyzers

import (
	"context"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// DockerAnalyzer classifies Dockerfile and compose changes, marking the
// ones that break a running deployment (base image, ports, user,
// entrypoint).
type DockerAnalyzer struct{}

func NewDockerAnalyzer() *DockerAnalyzer { return &DockerAnalyzer{} }

func (a *DockerAnalyzer) Name() string           { return "docker-change" }
func (a *DockerAnalyzer) Version() string        { return "1" }
func (a *DockerAnalyzer) CacheScope() CacheScope { return ScopeFiles }
func (a *DockerAnalyzer) FilePatterns() []string {
	return []string{"**/Dockerfile", "**/Dockerfile.*", "**/docker-compose.yml", "**/docker-compose.yaml"}
}

func isDockerfile(path string) bool {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile.")
}

func (a *DockerAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	var out []finding.Finding

	for _, fd := range cs.Diffs {
		path := fd.Path()
		if !MatchAny(a.FilePatterns(), path) {
			continue
		}

		var reasons []string
		var evidence []finding.Evidence
		addDirectives := map[string]string{}
		delDirectives := map[string]string{}

		for _, h := range fd.Hunks() {
			collectDirectives(h.Additions, addDirectives)
			collectDirectives(h.Deletions, delDirectives)
			for _, l := range append(append([]string{}, h.Additions...), h.Deletions...) {
				if d, _ := dockerDirective(l); d != "" {
					evidence = append(evidence, finding.Evidence{File: path, Excerpt: truncate(strings.TrimSpace(l), 120)})
				}
			}
		}

		if isDockerfile(path) {
			if from, ok := delDirectives["FROM"]; ok {
				if to, ok2 := addDirectives["FROM"]; ok2 && from != to {
					reasons = append(reasons, "Base image changed")
				}
			}
			if _, removed := delDirectives["EXPOSE"]; removed {
				if add, readded := addDirectives["EXPOSE"]; !readded || add != delDirectives["EXPOSE"] {
					reasons = append(reasons, "Exposed port changed")
				}
			}
			if from, ok := delDirectives["USER"]; ok {
				if to, ok2 := addDirectives["USER"]; !ok2 || from != to {
					reasons = append(reasons, "Container user changed")
				}
			}
			for _, d := range []string{"ENTRYPOINT", "CMD"} {
				if from, ok := delDirectives[d]; ok {
					if to, ok2 := addDirectives[d]; !ok2 || from != to {
						reasons = append(reasons, "Entrypoint changed")
						break
					}
				}
			}
		}

		kind := "dockerfile"
		if !isDockerfile(path) {
			kind = "compose"
		}

		out = append(out, finding.Finding{
			Type:            finding.TypeDockerChange,
			Kind:            kind,
			Category:        finding.CategoryInfra,
			Confidence:      0.9,
			Summary:         "Docker change in " + path,
			File:            path,
			IsBreaking:      len(reasons) > 0,
			BreakingReasons: reasons,
			Evidence:        evidence,
		})
	}

	return out, nil
}

func collectDirectives(lines []string, into map[string]string) {
	for _, l := range lines {
		if d, arg := dockerDirective(l); d != "" {
			// First occurrence wins; multi-stage builds change the base
			// image on the first FROM.
			if _, ok := into[d]; !ok {
				into[d] = arg
			}
		}
	}
}

func dockerDirective(line string) (directive, arg string) {
	t := strings.TrimSpace(line)
	for _, d := range []string{"FROM", "EXPOSE", "USER", "ENTRYPOINT", "CMD"} {
		if strings.HasPrefix(t, d+" ") {
			return d, strings.TrimSpace(t[len(d)+1:])
		}
	}
	return "", ""
}
