// Package finding defines the typed facts analyzers extract from a
// changeset, the stable content-derived identifiers attached to them, and
// the single total order that makes report output reproducible.
package finding

// Type discriminates the finding union. Every type listed here must have a
// fingerprint case in id.go; TestBuildFindingID_AllTypesHandled enforces
// that the switch stays exhaustive.
type Type string

const (
	TypeEnvVar           Type = "env-var"
	TypeDependencyChange Type = "dependency-change"
	TypeLockfileChange   Type = "lockfile-change"
	TypeDockerChange     Type = "docker-change"
	TypeDBMigration      Type = "db-migration"
	TypeRouteChange      Type = "route-change"
	TypeCIChange         Type = "ci-change"
	TypeConfigChange     Type = "config-change"
	TypeSecuritySurface  Type = "security-surface"
	TypeFeatureFlag      Type = "feature-flag"
	TypeLargeDiff        Type = "large-diff"
	TypeBinaryChange     Type = "binary-change"
)

// AllTypes enumerates every declared finding type, in the order findings
// sort within a category.
var AllTypes = []Type{
	TypeEnvVar,
	TypeDependencyChange,
	TypeLockfileChange,
	TypeDockerChange,
	TypeDBMigration,
	TypeRouteChange,
	TypeCIChange,
	TypeConfigChange,
	TypeSecuritySurface,
	TypeFeatureFlag,
	TypeLargeDiff,
	TypeBinaryChange,
}

// Category buckets findings for scoring and presentation.
type Category string

const (
	CategoryEnv      Category = "env"
	CategoryDeps     Category = "deps"
	CategoryInfra    Category = "infra"
	CategoryDatabase Category = "database"
	CategoryAPI      Category = "api"
	CategoryCI       Category = "ci"
	CategoryConfig   Category = "config"
	CategorySecurity Category = "security"
	CategorySize     Category = "size"
)

// Evidence points at the concrete diff content that justifies a finding.
type Evidence struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Finding is one discrete fact extracted from a changeset. Type selects
// which of the variant fields are meaningful; unused fields stay zero.
// Findings are produced fresh each run and never mutated after ID
// assignment.
type Finding struct {
	ID         string     `json:"id,omitempty"`
	Type       Type       `json:"type"`
	Kind       string     `json:"kind,omitempty"`
	Category   Category   `json:"category"`
	Confidence float64    `json:"confidence"`
	Summary    string     `json:"summary"`
	Evidence   []Evidence `json:"evidence,omitempty"`

	// Shared location fields.
	File  string   `json:"file,omitempty"`
	Files []string `json:"files,omitempty"`

	// env-var
	Variable string `json:"variable,omitempty"`

	// dependency-change
	Name      string `json:"name,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Section   string `json:"section,omitempty"`
	MajorBump bool   `json:"majorBump,omitempty"`
	Runtime   bool   `json:"runtime,omitempty"`

	// route-change
	RouteID   string `json:"routeId,omitempty"`
	Change    string `json:"change,omitempty"`
	RouteType string `json:"routeType,omitempty"`

	// docker-change
	IsBreaking      bool     `json:"isBreaking,omitempty"`
	BreakingReasons []string `json:"breakingReasons,omitempty"`

	// large-diff
	FilesChanged int `json:"filesChanged,omitempty"`
	LinesChanged int `json:"linesChanged,omitempty"`
}

// RiskFlag is a derived, scored judgment synthesized from one or more
// findings.
type RiskFlag struct {
	ID                string     `json:"id"`
	RuleKey           string     `json:"ruleKey"`
	Category          Category   `json:"category"`
	Level             string     `json:"level"` // low|medium|high
	Score             int        `json:"score"`
	Confidence        float64    `json:"confidence"`
	Title             string     `json:"title"`
	Summary           string     `json:"summary"`
	Evidence          []Evidence `json:"evidence,omitempty"`
	SuggestedChecks   []string   `json:"suggestedChecks,omitempty"`
	EffectiveScore    int        `json:"effectiveScore"`
	RelatedFindingIDs []string   `json:"relatedFindingIds"`
}
