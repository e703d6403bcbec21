package tracking

import "reflect"

// Walk visits every entity reachable from roots exactly once, in
// breadth-first order, using pointer identity to break cycles. Entities that
// are not Navigable are visited but not expanded.
func Walk(roots []Trackable, fn func(Trackable) error) error {
	seen := make(map[Trackable]struct{})
	queue := make([]Trackable, 0, len(roots))
	for _, r := range roots {
		if !IsNil(r) {
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		if err := fn(cur); err != nil {
			return err
		}
		nav, ok := cur.(Navigable)
		if !ok {
			continue
		}
		for _, n := range nav.Neighbors() {
			if IsNil(n) {
				continue
			}
			if _, ok := seen[n]; !ok {
				queue = append(queue, n)
			}
		}
	}
	return nil
}

// Collect returns the reachable entities in Walk order.
func Collect(roots ...Trackable) []Trackable {
	var out []Trackable
	_ = Walk(roots, func(t Trackable) error {
		out = append(out, t)
		return nil
	})
	return out
}

// IsNil reports whether t is nil or a typed nil pointer.
func IsNil(t Trackable) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
