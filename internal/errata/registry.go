package errata

import "fmt"

// Registry holds rules bucketed by kind. It is built once and read
// concurrently by every subject's accumulator.
type Registry struct {
	buckets map[Kind][]Rule
}

// NewRegistry normalises rules and buckets them by kind, keeping
// declaration order within each bucket.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{buckets: make(map[Kind][]Rule, len(Kinds))}
	for i, rule := range rules {
		normalized, err := rule.normalized()
		if err != nil {
			return nil, fmt.Errorf("errata rule %d: %w", i+1, err)
		}
		kind := normalized.Kind()
		r.buckets[kind] = append(r.buckets[kind], normalized)
	}
	return r, nil
}

// Empty returns a registry without rules.
func Empty() *Registry {
	return &Registry{buckets: map[Kind][]Rule{}}
}

// Match returns the first rule of the kind whose filter matches ctx.
func (r *Registry) Match(kind Kind, ctx Context) (Rule, bool) {
	if r == nil {
		return Rule{}, false
	}
	for _, rule := range r.buckets[kind] {
		if rule.Filter.Matches(ctx) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Rules returns the rules of a kind in declaration order.
func (r *Registry) Rules(kind Kind) []Rule {
	if r == nil {
		return nil
	}
	out := make([]Rule, len(r.buckets[kind]))
	copy(out, r.buckets[kind])
	return out
}

// Len returns the total number of rules.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, bucket := range r.buckets {
		n += len(bucket)
	}
	return n
}
