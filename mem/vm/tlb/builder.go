package tlb

// A Builder can build TLBs
type Builder struct {
	numWays int
}

// MakeBuilder returns a Builder
func MakeBuilder() Builder {
	return Builder{
		numWays: 32,
	}
}

// WithNumWays sets the number of entries in the TLB. All the entries form one
// fully-associative set.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// Build creates a new TLB
func (b Builder) Build(name string) *TLB {
	if b.numWays < 1 {
		panic("a TLB must have at least one entry")
	}

	t := &TLB{name: name}
	t.SetSize(b.numWays)

	return t
}
