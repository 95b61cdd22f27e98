package mailprobe

// Counts tallies results per verdict.
type Counts map[Verdict]int

// CountVerdicts returns how many results carry each verdict.
func CountVerdicts(results []Result) Counts {
	c := make(Counts, len(results))
	for _, r := range results {
		c[r.Verdict]++
	}
	return c
}

// DomainValid returns how many results showed working mail infrastructure,
// whatever was said about the recipient.
func (c Counts) DomainValid() int {
	n := 0
	for v, k := range c {
		if v.DomainValid() {
			n += k
		}
	}
	return n
}

// Total returns the number of counted results.
func (c Counts) Total() int {
	n := 0
	for _, k := range c {
		n += k
	}
	return n
}
