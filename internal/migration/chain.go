package migration

import "fmt"

// Chain is a validated, linearly ordered migration namespace for a
// chained-revision store. Units are held root first.
type Chain struct {
	units []Unit
	index map[string]int // revision -> position in units
}

// BuildChain validates the units belonging to the given branch (empty branch
// selects the trunk) and returns them in predecessor order. It fails with a
// *ConfigurationError on duplicate revisions, multiple roots, dangling
// predecessor references, forks (two units sharing a predecessor), or cycles.
func BuildChain(store string, units []Unit, branch string) (*Chain, error) {
	var selected []Unit
	for _, u := range units {
		if u.Branch == branch {
			selected = append(selected, u)
		}
	}

	byRev := make(map[string]Unit, len(selected))
	for _, u := range selected {
		if u.Revision == "" {
			return nil, &ConfigurationError{Store: store, UnitID: u.ID, Detail: "unit has no revision identifier"}
		}
		if prev, dup := byRev[u.Revision]; dup {
			return nil, &ConfigurationError{
				Store:  store,
				UnitID: u.ID,
				Detail: fmt.Sprintf("revision %s already defined by unit %s", u.Revision, prev.ID),
			}
		}
		byRev[u.Revision] = u
	}

	// successor[rev] is the unit whose DownRevision is rev. A second
	// claimant means the chain forks.
	successor := make(map[string]Unit, len(selected))
	var root *Unit
	for _, u := range selected {
		u := u
		if u.DownRevision == "" {
			if root != nil {
				return nil, &ConfigurationError{
					Store:  store,
					UnitID: u.ID,
					Detail: fmt.Sprintf("multiple roots: %s and %s both have no predecessor", root.ID, u.ID),
				}
			}
			root = &u
			continue
		}
		if _, ok := byRev[u.DownRevision]; !ok {
			return nil, &ConfigurationError{
				Store:  store,
				UnitID: u.ID,
				Detail: fmt.Sprintf("predecessor %s not found", u.DownRevision),
			}
		}
		if prev, taken := successor[u.DownRevision]; taken {
			return nil, &ConfigurationError{
				Store:  store,
				UnitID: u.ID,
				Detail: fmt.Sprintf("chain forks: %s and %s both follow %s", prev.ID, u.ID, u.DownRevision),
			}
		}
		successor[u.DownRevision] = u
	}

	c := &Chain{index: make(map[string]int, len(selected))}
	if len(selected) == 0 {
		return c, nil
	}
	if root == nil {
		// Every unit has a predecessor, so the selection is cyclic.
		return nil, &ConfigurationError{Store: store, Detail: "no root: predecessor references form a cycle"}
	}

	cur := *root
	for {
		c.index[cur.Revision] = len(c.units)
		c.units = append(c.units, cur)
		next, ok := successor[cur.Revision]
		if !ok {
			break
		}
		cur = next
	}
	if len(c.units) != len(selected) {
		// Unreachable units chain onto each other in a cycle off the
		// main line.
		return nil, &ConfigurationError{
			Store:  store,
			Detail: fmt.Sprintf("%d units unreachable from root %s (cycle)", len(selected)-len(c.units), root.ID),
		}
	}
	return c, nil
}

// Units returns the chain root first. The returned slice is shared; callers
// must not mutate it.
func (c *Chain) Units() []Unit { return c.units }

// Len returns the number of units in the chain.
func (c *Chain) Len() int { return len(c.units) }

// Head returns the revision of the chain tip, or "" for an empty chain.
func (c *Chain) Head() string {
	if len(c.units) == 0 {
		return ""
	}
	return c.units[len(c.units)-1].Revision
}

// IndexOf returns the chain position of a revision. The empty revision
// (base) is position -1. The second return is false for revisions the chain
// does not contain.
func (c *Chain) IndexOf(revision string) (int, bool) {
	if revision == "" {
		return -1, true
	}
	i, ok := c.index[revision]
	if !ok {
		return 0, false
	}
	return i, true
}

// Contains reports whether the revision is part of the chain.
func (c *Chain) Contains(revision string) bool {
	_, ok := c.index[revision]
	return ok
}
