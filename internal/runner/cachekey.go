package runner

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/diffscope/internal/analyzers"
	"github.com/standardbeagle/diffscope/internal/types"
)

// FilesHash hashes the sorted relevant-path set. Two changesets that touch
// the same files (from one analyzer's point of view) share a hash even if
// refs moved underneath.
func FilesHash(paths []string) uint64 {
	h := xxhash.New()
	for _, p := range paths {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// CacheKey builds the per-analyzer cache key. Ref names are used verbatim
// rather than resolved SHAs: entries stay valid across sequential runs on a
// moving branch tip as long as the relevant file set is unchanged. The
// analyzer version is part of the key so logic upgrades invalidate stale
// entries without a schema bump.
func CacheKey(a analyzers.Analyzer, profile string, cs *types.ChangeSet, relevant []string) string {
	var b strings.Builder
	b.WriteString(a.Name())
	b.WriteByte('|')
	b.WriteString(a.Version())
	b.WriteByte('|')
	b.WriteString(profile)
	b.WriteByte('|')
	b.WriteString(string(cs.Mode))
	b.WriteByte('|')
	b.WriteString(cs.Base)
	b.WriteByte('|')
	b.WriteString(cs.Head)
	b.WriteByte('|')
	fmt.Fprintf(&b, "%016x", FilesHash(relevant))
	return b.String()
}
