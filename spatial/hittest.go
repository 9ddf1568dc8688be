package spatial

// Candidate is an object region submitted to a hit test.
type Candidate struct {
	ID     uint32
	Region Region
}

// HitTest returns the id of the topmost candidate containing p. When
// several regions overlap at p, the highest id wins, which is the most
// recently created object since ids are never reused.
func HitTest(p Vector2f, candidates []Candidate) (uint32, bool) {
	var best uint32
	var found bool

	for _, c := range candidates {
		if !c.Region.Contains(p) {
			continue
		}
		if !found || c.ID > best {
			best = c.ID
			found = true
		}
	}
	return best, found
}
