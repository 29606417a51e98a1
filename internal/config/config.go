// Package config loads .diffscope.kdl project configuration. Absence of
// the file is not an error; every field has a default and CLI flags
// override whatever was loaded.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	derrors "github.com/standardbeagle/diffscope/internal/errors"
	"github.com/standardbeagle/diffscope/internal/types"
)

// ConfigFileName is looked up in the repository root.
const ConfigFileName = ".diffscope.kdl"

// Config is the merged project configuration.
type Config struct {
	Version  int
	Analysis Analysis
	Cache    Cache
	Watch    Watch
	Output   Output
}

type Analysis struct {
	// Base is the default base ref for branch mode.
	Base string
	// Mode is the default diff mode when no flag selects one.
	Mode types.DiffMode
	// Profile tags cache keys; empty means auto-detected.
	Profile string
	// DisabledAnalyzers lists analyzer names excluded from the run.
	DisabledAnalyzers []string
}

type Cache struct {
	Enabled bool
	// Dir is relative to the repository root unless absolute.
	Dir string
}

type Watch struct {
	DebounceMs int
}

type Output struct {
	// Format: "terminal" or "json".
	Format string
	Color  bool
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version: 1,
		Analysis: Analysis{
			Base: "main",
			Mode: types.ModeBranch,
		},
		Cache: Cache{
			Enabled: true,
			Dir:     filepath.Join(".diffscope", "cache"),
		},
		Watch: Watch{
			DebounceMs: 300,
		},
		Output: Output{
			Format: "terminal",
			Color:  true,
		},
	}
}

// Load reads .diffscope.kdl from root, returning defaults when the file
// does not exist.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, ConfigFileName)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, derrors.NewConfigError(path, "", err)
	}

	cfg, err := parse(string(content))
	if err != nil {
		return nil, derrors.NewConfigError(path, "", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Analysis.Mode {
	case types.ModeBranch, types.ModeStaged, types.ModeUnstaged, types.ModeAll:
	default:
		return derrors.NewConfigError(ConfigFileName, "analysis.mode",
			fmt.Errorf("unknown mode %q", c.Analysis.Mode))
	}
	switch c.Output.Format {
	case "terminal", "json":
	default:
		return derrors.NewConfigError(ConfigFileName, "output.format",
			fmt.Errorf("unknown format %q", c.Output.Format))
	}
	if c.Watch.DebounceMs <= 0 {
		return derrors.NewConfigError(ConfigFileName, "watch.debounce_ms",
			fmt.Errorf("must be positive, got %d", c.Watch.DebounceMs))
	}
	return nil
}

func parse(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "analysis":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "base":
					if s, ok := firstStringArg(cn); ok {
						cfg.Analysis.Base = s
					}
				case "mode":
					if s, ok := firstStringArg(cn); ok {
						cfg.Analysis.Mode = types.DiffMode(s)
					}
				case "profile":
					if s, ok := firstStringArg(cn); ok {
						cfg.Analysis.Profile = s
					}
				case "disable":
					cfg.Analysis.DisabledAnalyzers = append(cfg.Analysis.DisabledAnalyzers, collectStringArgs(cn)...)
				}
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Cache.Enabled = b
					}
				case "dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Cache.Dir = s
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				if nodeName(cn) == "debounce_ms" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		case "output":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "format":
					if s, ok := firstStringArg(cn); ok {
						cfg.Output.Format = s
					}
				case "color":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Output.Color = b
					}
				}
			}
		}
	}

	return cfg, nil
}

// Helpers over the kdl-go document model.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	var out []string
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
