package nfa

// MoveOuts relocates every out-arc of old onto new, freeing old's originals.
// Mirrors the reference's moveouts.
func (n *NFA) MoveOuts(old, new StateID) {
	n.OutArcs(old, func(idx ArcIdx) {
		a := n.Arc(idx)
		n.AddArc(a.Type, new, a.To, a.Co)
		n.FreeArc(idx)
	})
}

// MoveIns relocates every in-arc of old onto new, freeing old's originals.
// Mirrors the reference's moveins.
func (n *NFA) MoveIns(old, new StateID) {
	n.InArcs(old, func(idx ArcIdx) {
		a := n.Arc(idx)
		n.AddArc(a.Type, a.From, new, a.Co)
		n.FreeArc(idx)
	})
}

// localFragment returns every state reachable from start without expanding
// past stop — i.e. the bounded sub-NFA strung between start and stop by
// NewFragment's bracketing discipline.
func (n *NFA) localFragment(start, stop StateID) map[StateID]bool {
	visited := map[StateID]bool{start: true}
	queue := []StateID{start}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if s == stop {
			continue
		}
		n.OutArcs(s, func(idx ArcIdx) {
			a := n.Arc(idx)
			if !visited[a.To] {
				visited[a.To] = true
				queue = append(queue, a.To)
			}
		})
	}
	return visited
}

// DupFragment duplicates the sub-NFA bracketed by (start, stop), returning
// the copies of start and stop. Mirrors the reference's dupnfa.
func (n *NFA) DupFragment(start, stop StateID) (StateID, StateID) {
	visited := n.localFragment(start, stop)
	copyOf := make(map[StateID]StateID, len(visited))
	for s := range visited {
		copyOf[s] = n.NewState()
	}
	for s := range visited {
		n.OutArcs(s, func(idx ArcIdx) {
			a := n.Arc(idx)
			if visited[a.To] {
				n.AddArc(a.Type, copyOf[s], copyOf[a.To], a.Co)
			}
		})
	}
	return copyOf[start], copyOf[stop]
}

// DelSub frees every state and arc strictly between lp and rp (exclusive),
// leaving lp and rp as bare, unconnected states. Mirrors the reference's
// delsub, used by Repeat's {0,0} case.
func (n *NFA) DelSub(lp, rp StateID) {
	visited := n.localFragment(lp, rp)
	for s := range visited {
		if s == lp || s == rp {
			continue
		}
		n.OutArcs(s, func(idx ArcIdx) { n.FreeArc(idx) })
		n.InArcs(s, func(idx ArcIdx) { n.FreeArc(idx) })
	}
	n.OutArcs(lp, func(idx ArcIdx) { n.FreeArc(idx) })
	n.InArcs(rp, func(idx ArcIdx) { n.FreeArc(idx) })
}
