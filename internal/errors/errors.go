// Package errors defines the typed error values the pipeline surfaces to
// the CLI. Programmer errors (decoding without a source buffer, an
// unregistered finding type) panic instead; these types cover operational
// failures the caller is expected to report.
package errors

import (
	"fmt"
)

// ErrorType classifies errors for exit-code mapping at the CLI boundary.
type ErrorType string

const (
	ErrorTypeGit      ErrorType = "git"
	ErrorTypeAnalyzer ErrorType = "analyzer"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeCache    ErrorType = "cache"
)

// GitError wraps a failed git invocation with the command that ran.
type GitError struct {
	Type       ErrorType
	Args       []string
	Stderr     string
	Underlying error
}

// NewGitError creates a git error with the invocation context.
func NewGitError(args []string, stderr string, err error) *GitError {
	return &GitError{
		Type:       ErrorTypeGit,
		Args:       args,
		Stderr:     stderr,
		Underlying: err,
	}
}

func (e *GitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %v failed: %v: %s", e.Args, e.Underlying, e.Stderr)
	}
	return fmt.Sprintf("git %v failed: %v", e.Args, e.Underlying)
}

func (e *GitError) Unwrap() error {
	return e.Underlying
}

// AnalyzerError identifies which analyzer aborted the batch.
type AnalyzerError struct {
	Type       ErrorType
	Analyzer   string
	Underlying error
}

func NewAnalyzerError(name string, err error) *AnalyzerError {
	return &AnalyzerError{
		Type:       ErrorTypeAnalyzer,
		Analyzer:   name,
		Underlying: err,
	}
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("analyzer %s failed: %v", e.Analyzer, e.Underlying)
}

func (e *AnalyzerError) Unwrap() error {
	return e.Underlying
}

// ConfigError reports an invalid or unreadable configuration file.
type ConfigError struct {
	Type       ErrorType
	Path       string
	Field      string
	Underlying error
}

func NewConfigError(path, field string, err error) *ConfigError {
	return &ConfigError{
		Type:       ErrorTypeConfig,
		Path:       path,
		Field:      field,
		Underlying: err,
	}
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s: invalid %s: %v", e.Path, e.Field, e.Underlying)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Underlying)
}

func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// CacheError reports a cache maintenance failure. Read/write failures
// during analysis never produce one of these; they degrade to misses.
type CacheError struct {
	Type       ErrorType
	Operation  string
	Underlying error
}

func NewCacheError(op string, err error) *CacheError {
	return &CacheError{
		Type:       ErrorTypeCache,
		Operation:  op,
		Underlying: err,
	}
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed: %v", e.Operation, e.Underlying)
}

func (e *CacheError) Unwrap() error {
	return e.Underlying
}
