package finding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// idHashLen is the number of hex characters of the digest kept in an ID.
const idHashLen = 12

// BuildFindingID derives the stable identifier for a finding from its
// semantic content: same fact, same ID, regardless of analyzer order, OS
// path separators or cache provenance. Format: finding.<type>#<hash>.
//
// Unknown types panic: an unregistered type reaching this switch is a
// broken invariant, not a recoverable condition.
func BuildFindingID(f Finding) string {
	return fmt.Sprintf("finding.%s#%s", f.Type, hashFingerprint(fingerprint(f)))
}

// BuildFlagID derives a flag's identifier from its rule key and the sorted
// IDs of the findings it was synthesized from. Format: flag.<ruleKey>#<hash>.
func BuildFlagID(ruleKey string, relatedFindingIDs []string) string {
	parts := append([]string{ruleKey}, sortedCopy(relatedFindingIDs)...)
	return fmt.Sprintf("flag.%s#%s", ruleKey, hashFingerprint(strings.Join(parts, "|")))
}

// AssignIDs returns a new slice with every finding's ID populated. Inputs
// are not mutated.
func AssignIDs(findings []Finding) []Finding {
	out := make([]Finding, len(findings))
	for i, f := range findings {
		f.ID = BuildFindingID(f)
		out[i] = f
	}
	return out
}

// fingerprint builds the canonical pre-image string for a finding's hash
// from its type tag plus the type's stable identifying fields. Collections
// are sorted and paths normalized first, so the fingerprint is invariant to
// input ordering and host path conventions.
func fingerprint(f Finding) string {
	parts := []string{string(f.Type)}

	switch f.Type {
	case TypeEnvVar:
		parts = append(parts, f.Variable, f.Kind, normPath(f.File))
	case TypeDependencyChange:
		parts = append(parts, f.Name, f.From, f.To, f.Section)
	case TypeLockfileChange:
		parts = append(parts, normPath(f.File), f.Kind)
	case TypeDockerChange:
		parts = append(parts, normPath(f.File), f.Kind)
		parts = append(parts, sortedCopy(f.BreakingReasons)...)
	case TypeDBMigration:
		parts = append(parts, normPath(f.File), f.Kind)
	case TypeRouteChange:
		parts = append(parts, f.RouteID, f.Change, f.RouteType)
	case TypeCIChange:
		parts = append(parts, normPath(f.File), f.Kind)
	case TypeConfigChange:
		parts = append(parts, normPath(f.File), f.Kind)
	case TypeSecuritySurface:
		parts = append(parts, f.Kind, normPath(f.File))
	case TypeFeatureFlag:
		parts = append(parts, f.Name, f.Kind, normPath(f.File))
	case TypeLargeDiff:
		parts = append(parts, fmt.Sprintf("%d", f.FilesChanged), fmt.Sprintf("%d", f.LinesChanged))
	case TypeBinaryChange:
		parts = append(parts, normPath(f.File), f.Kind)
	default:
		panic(fmt.Sprintf("finding: no fingerprint case for type %q", f.Type))
	}

	if len(f.Files) > 0 {
		parts = append(parts, sortedPaths(f.Files)...)
	}

	return strings.Join(parts, "|")
}

func hashFingerprint(fp string) string {
	sum := sha256.Sum256([]byte(fp))
	return hex.EncodeToString(sum[:])[:idHashLen]
}

// normPath normalizes a path for fingerprinting: backslashes become
// forward slashes so Windows- and Unix-produced diffs hash identically.
func normPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func sortedPaths(in []string) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = normPath(p)
	}
	sort.Strings(out)
	return out
}
