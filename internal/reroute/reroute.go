// Package reroute synthesizes a label-switched bypass around a failed
// interface: a Dijkstra search over interfaces with a pluggable
// non-negative cost function, back-pointer path reconstruction, then
// pop/swap/push rule installation and failover-entry generation at the
// first hop.
package reroute

import (
	"container/heap"

	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/routingtable"
)

// CostFunc assigns a non-negative traversal cost to an interface.
type CostFunc func(*netgraph.Interface) uint32

// DefaultCost charges a unit cost per hop.
func DefaultCost(*netgraph.Interface) uint32 { return 1 }

type node struct {
	cost uint32
	ifc  *netgraph.Interface
	prev *node
}

// pqueue is a container/heap min-heap over node.cost, ties broken by the
// interface's global id for reproducible results.
type pqueue []*node

func (q pqueue) Len() int { return len(q) }
func (q pqueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].ifc.GlobalID() < q[j].ifc.GlobalID()
}
func (q pqueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pqueue) Push(x any)   { *q = append(*q, x.(*node)) }
func (q *pqueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// MakeReroute finds a bypass from failed.Router to failed's peer router
// that avoids failed, and on success installs the pop/swap/push rule
// chain plus failover entries at the first hop. Returns false if no
// bypass exists, or if the first bypass found is the degenerate single-hop case
// (a direct sibling link straight to the target) with no intermediate
// router to carry the tunnel label through.
func MakeReroute(failed *netgraph.Interface, failoverLabel label.Label, cost CostFunc) bool {
	if cost == nil {
		cost = DefaultCost
	}
	target := failed.PeerInterface()
	if target == nil {
		return false
	}
	targetRouter := target.Router

	pq := &pqueue{}
	heap.Init(pq)
	seen := map[*netgraph.Router]bool{failed.Router: true}
	for _, i := range failed.Router.Interfaces {
		if i == failed {
			continue
		}
		heap.Push(pq, &node{cost: 0, ifc: i})
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*node)
		peer := cur.ifc.PeerInterface()
		if peer == nil {
			continue
		}
		if peer.Router == targetRouter {
			return installReroute(failed, pathFrom(cur), failoverLabel)
		}
		if seen[peer.Router] {
			continue
		}
		seen[peer.Router] = true
		for _, i := range peer.Router.Interfaces {
			if i == failed {
				continue
			}
			heap.Push(pq, &node{cost: cur.cost + cost(i), ifc: i, prev: cur})
		}
	}
	return false
}

// pathFrom unwinds the back-pointer chain into a source-to-target ordered
// edge list.
func pathFrom(n *node) []*netgraph.Interface {
	var out []*netgraph.Interface
	for cur := n; cur != nil; cur = cur.prev {
		out = append(out, cur.ifc)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func installReroute(failed *netgraph.Interface, path []*netgraph.Interface, failoverLabel label.Label) bool {
	m := len(path)
	if m < 2 {
		return false
	}

	// Penultimate router (arrival side of path[m-2]) pops the failover
	// label and forwards across the last hop: MPLS penultimate-hop
	// popping, matching FastRerouting.cpp's rule placement exactly.
	penultimateIn := path[m-2].PeerInterface()
	penultimateIn.Table.AddRule(failoverLabel, false, routingtable.Rule{Via: path[m-1], Ops: []label.Action{{Op: label.Pop}}})

	// Every router strictly between source and penultimate swaps the
	// label (identity) and forwards to the next hop.
	for i := m - 3; i >= 0; i-- {
		in := path[i].PeerInterface()
		in.Table.AddRule(failoverLabel, false, routingtable.Rule{Via: path[i+1], Ops: []label.Action{{Op: label.Swap, Label: failoverLabel}}})
	}

	for _, sib := range failed.Router.Interfaces {
		if sib == failed {
			continue
		}
		sib.Table.AddFailoverEntries(failed, path[0], failoverLabel)
	}
	return true
}
