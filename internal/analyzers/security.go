package analyzers

import (
	"context"
	"regexp"
	"strings"

	"github.com/standardbeagle/diffscope/internal/finding"
	"github.com/standardbeagle/diffscope/internal/types"
)

// Security-sensitive surfaces grouped by kind; a changeset touching these
// warrants closer review regardless of what the change does.
var securitySurfaces = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"authentication", regexp.MustCompile(`(?i)\b(auth|login|logout|password|credential|jwt|oauth|session)\b`)},
	{"authorization", regexp.MustCompile(`(?i)\b(permission|role|rbac|acl|authorize|is.?admin)\b`)},
	{"cryptography", regexp.MustCompile(`(?i)\b(encrypt|decrypt|hmac|cipher|bcrypt|scrypt|private.?key|secret.?key)\b`)},
	{"subprocess", regexp.MustCompile(`(?i)(exec\.Command|child_process|subprocess|os\.system|shell_exec|\beval\()`)},
	{"tls", regexp.MustCompile(`(?i)(InsecureSkipVerify|verify.?ssl.*false|disable.?ssl)`)},
}

// SecuritySurfaceAnalyzer flags added lines that touch security-sensitive
// code paths.
type SecuritySurfaceAnalyzer struct{}

func NewSecuritySurfaceAnalyzer() *SecuritySurfaceAnalyzer { return &SecuritySurfaceAnalyzer{} }

func (a *SecuritySurfaceAnalyzer) Name() string           { return "security-surface" }
func (a *SecuritySurfaceAnalyzer) Version() string        { return "1" }
func (a *SecuritySurfaceAnalyzer) CacheScope() CacheScope { return ScopeFiles }
func (a *SecuritySurfaceAnalyzer) FilePatterns() []string { return nil }

func (a *SecuritySurfaceAnalyzer) Analyze(_ context.Context, cs *types.ChangeSet) ([]finding.Finding, error) {
	type key struct{ kind, file string }
	seen := map[key]int{}
	var out []finding.Finding

	eachHunk(cs, func(path string, h types.Hunk) {
		// Documentation never exposes an attack surface.
		if types.CategorizeFile(path) == types.CategoryDocs {
			return
		}
		for i, line := range h.Additions {
			for _, s := range securitySurfaces {
				if !s.re.MatchString(line) {
					continue
				}
				ev := finding.Evidence{File: path, Line: lineNumberAt(h.AdditionLines, h.NewStart, i), Excerpt: truncate(strings.TrimSpace(line), 120)}
				k := key{s.kind, path}
				if idx, ok := seen[k]; ok {
					out[idx].Evidence = append(out[idx].Evidence, ev)
					continue
				}
				seen[k] = len(out)
				out = append(out, finding.Finding{
					Type:       finding.TypeSecuritySurface,
					Kind:       s.kind,
					Category:   finding.CategorySecurity,
					Confidence: 0.6,
					Summary:    "Security-sensitive change (" + s.kind + ") in " + path,
					File:       path,
					Evidence:   []finding.Evidence{ev},
				})
			}
		}
	})

	return out, nil
}
