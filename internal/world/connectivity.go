package world

import "fmt"

// Components splits locations into connected components. Components are
// ordered by their earliest location, and locations within one component
// keep their input order.
func Components(locations []*Location) [][]*Location {
	componentOf := make(map[*Location]int, len(locations))
	count := 0

	for _, start := range locations {
		if _, ok := componentOf[start]; ok {
			continue
		}
		componentOf[start] = count
		queue := []*Location{start}
		for len(queue) > 0 {
			l := queue[0]
			queue = queue[1:]
			for _, c := range l.Connections {
				next := c.OtherLocation(l)
				if _, ok := componentOf[next]; ok {
					continue
				}
				componentOf[next] = count
				queue = append(queue, next)
			}
		}
		count++
	}

	components := make([][]*Location, count)
	for _, l := range locations {
		id := componentOf[l]
		components[id] = append(components[id], l)
	}
	return components
}

// CheckConnectivity returns ErrDisconnectedGraph unless every location is
// reachable from every other.
func CheckConnectivity(locations []*Location) error {
	components := Components(locations)
	if len(components) <= 1 {
		return nil
	}
	sizes := make([]int, len(components))
	for i, comp := range components {
		sizes[i] = len(comp)
	}
	return fmt.Errorf("%w: %d components, sizes %v", ErrDisconnectedGraph, len(components), sizes)
}

// keepLargestComponent drops every location outside the largest component,
// preferring the earliest component on ties, along with its connections.
func keepLargestComponent(locations []*Location, connections []*Connection) ([]*Location, []*Connection, int) {
	components := Components(locations)
	if len(components) <= 1 {
		return locations, connections, 0
	}

	best := 0
	for i, comp := range components {
		if len(comp) > len(components[best]) {
			best = i
		}
	}

	keep := make(map[*Location]bool, len(components[best]))
	for _, l := range components[best] {
		keep[l] = true
	}

	keptConnections := connections[:0:0]
	for _, c := range connections {
		if keep[c.Locations[0]] {
			keptConnections = append(keptConnections, c)
		}
	}
	return components[best], keptConnections, len(locations) - len(components[best])
}
