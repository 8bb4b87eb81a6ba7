package variable

// EvaluationOrder returns the computed variable ids in an order where every
// computed variable follows the computed variables it depends on. Inputs carry
// no in-degree since their values are always available.
func EvaluationOrder(defs Definitions) ([]string, error) {
	computed := make(map[string]bool)
	var computedIDs []string
	for _, d := range defs {
		if d.IsComputed() && !computed[d.ID] {
			computed[d.ID] = true
			computedIDs = append(computedIDs, d.ID)
		}
	}

	inDegree := make(map[string]int, len(computedIDs))
	dependents := make(map[string][]string, len(computedIDs))
	for _, id := range computedIDs {
		inDegree[id] = 0
	}
	for _, d := range defs {
		if !d.IsComputed() {
			continue
		}
		for _, dep := range d.DependsOn {
			if !computed[dep] {
				continue
			}
			dependents[dep] = append(dependents[dep], d.ID)
			inDegree[d.ID]++
		}
	}

	queue := make([]string, 0, len(computedIDs))
	for _, id := range computedIDs {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(computedIDs))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range dependents[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) < len(computedIDs) {
		var unresolved []string
		for _, id := range computedIDs {
			if inDegree[id] > 0 {
				unresolved = append(unresolved, id)
			}
		}
		return nil, &CircularDependencyError{IDs: unresolved}
	}
	return order, nil
}
