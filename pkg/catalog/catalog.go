package catalog

import (
	"fmt"

	"github.com/subledger/subledger/pkg/errdefs"
)

// Catalog is an immutable, ordered collection of plans. Safe for concurrent
// use without locking.
type Catalog struct {
	plans []*Plan
	byID  map[string]*Plan
}

// New builds a catalog from the given plans, preserving their order.
func New(plans ...*Plan) (*Catalog, error) {
	c := &Catalog{
		plans: make([]*Plan, 0, len(plans)),
		byID:  make(map[string]*Plan, len(plans)),
	}
	for _, p := range plans {
		if p.ID == "" {
			return nil, fmt.Errorf("plan %q has an empty id", p.Name)
		}
		if !p.Tier.Valid() {
			return nil, fmt.Errorf("plan %q has unknown tier %q", p.ID, p.Tier)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate plan id %q", p.ID)
		}
		c.plans = append(c.plans, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

// Default returns a catalog built from DefaultPlans.
func Default() *Catalog {
	c, err := New(DefaultPlans()...)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns the available plans in catalog order.
func (c *Catalog) List() []*Plan {
	out := make([]*Plan, 0, len(c.plans))
	for _, p := range c.plans {
		if p.Available {
			out = append(out, p)
		}
	}
	return out
}

// Get returns an available plan by id. Retired and unknown plans both come
// back as not-found: callers cannot subscribe to either.
func (c *Catalog) Get(id string) (*Plan, error) {
	p, ok := c.byID[id]
	if !ok || !p.Available {
		return nil, errdefs.NotFoundf("plan %s not found", id)
	}
	return p, nil
}

// Lookup returns a plan by id regardless of availability. Existing
// subscriptions keep referencing plans after they are retired from sale.
func (c *Catalog) Lookup(id string) (*Plan, bool) {
	p, ok := c.byID[id]
	return p, ok
}
