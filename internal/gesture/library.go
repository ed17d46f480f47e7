package gesture

import "math"

// None is returned by Nearest when the library is empty.
const None = "None"

// Match is the result of a library lookup.
type Match struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

type entry struct {
	name      string
	signature Signature
}

// Library maps gesture names to signatures. Entries keep their insertion
// order so that lookups are reproducible. It is not safe for concurrent use.
type Library struct {
	config  Config
	entries []entry
	index   map[string]int
}

// NewLibrary creates an empty Library.
func NewLibrary(config Config) *Library {
	return &Library{
		config: config,
		index:  make(map[string]int),
	}
}

// Add stores sig under name. An existing entry is replaced in place and keeps
// its position.
func (l *Library) Add(name string, sig Signature) {
	if i, ok := l.index[name]; ok {
		l.entries[i].signature = sig
		return
	}
	l.index[name] = len(l.entries)
	l.entries = append(l.entries, entry{name: name, signature: sig})
}

// Remove deletes the named entry. It reports whether the entry existed.
func (l *Library) Remove(name string) bool {
	i, ok := l.index[name]
	if !ok {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	delete(l.index, name)
	for j := i; j < len(l.entries); j++ {
		l.index[l.entries[j].name] = j
	}
	return true
}

// Get returns the named signature.
func (l *Library) Get(name string) (Signature, bool) {
	i, ok := l.index[name]
	if !ok {
		return Signature{}, false
	}
	return l.entries[i].signature, true
}

// Names returns the entry names in insertion order.
func (l *Library) Names() []string {
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.name
	}
	return names
}

// Len returns the number of entries.
func (l *Library) Len() int {
	return len(l.entries)
}

// Nearest returns the entry closest to sig. No threshold is applied, so a
// non-empty library always yields a name. Ties go to the earliest entry.
func (l *Library) Nearest(sig *Signature) Match {
	best := Match{Name: None, Distance: math.Inf(1)}
	for i := range l.entries {
		d := sig.Distance(&l.entries[i].signature, l.config.IncludeSpread)
		if d < best.Distance {
			best = Match{Name: l.entries[i].name, Distance: d}
		}
	}
	if best.Name == None {
		best.Distance = 0
	}
	return best
}
