package arena

// InternPool returns a canonical shared string for equal decoded byte
// ranges, so repeated paths and short common tokens are allocated once per
// parse instead of once per decode.
//
// Lookup via map[string] with a string([]byte) key conversion does not
// allocate in Go; only a miss pays for the string copy.
type InternPool struct {
	strings map[string]string
	hits    int64
	misses  int64
}

// internMaxLen caps interning to short strings. Long line content is almost
// always unique, so interning it would just grow the pool.
const internMaxLen = 128

// NewInternPool creates an empty pool with a small initial capacity.
func NewInternPool() *InternPool {
	return &InternPool{strings: make(map[string]string, 64)}
}

// Intern returns the canonical string for b, creating it on first sight.
func (p *InternPool) Intern(b []byte) string {
	if len(b) > internMaxLen {
		p.misses++
		return string(b)
	}
	if s, ok := p.strings[string(b)]; ok {
		p.hits++
		return s
	}
	s := string(b)
	p.strings[s] = s
	p.misses++
	return s
}

// Len returns the number of canonical strings held.
func (p *InternPool) Len() int { return len(p.strings) }

// Stats returns hit/miss counters for diagnostics.
func (p *InternPool) Stats() (hits, misses int64) { return p.hits, p.misses }

// Reset drops all canonical strings, keeping the pool usable.
func (p *InternPool) Reset() {
	p.strings = make(map[string]string, 64)
	p.hits = 0
	p.misses = 0
}
