// Package netgraph implements the network topology model: routers,
// interfaces, their pairing across links, and the global interface
// index.
package netgraph

import (
	"fmt"

	"github.com/aalwines/verifier/internal/routingtable"
)

// Location is the optional geographic coordinate a router may carry,
// round-tripped by internal/netio but otherwise unused by the
// verification core.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Interface belongs to exactly one Router. GlobalID is unique across the
// whole Network; LocalID is unique within the owning Router.
type Interface struct {
	LocalID  uint64
	Name     string
	Router   *Router
	Table    *routingtable.Table
	Virtual  bool

	globalID uint64
	match    *Interface // peer interface on another router, or nil
}

// The routingtable.Interface contract:
func (i *Interface) GlobalID() uint64 { return i.globalID }
func (i *Interface) IsVirtual() bool  { return i.Virtual }
func (i *Interface) Match() routingtable.Interface {
	if i.match == nil {
		return nil
	}
	return i.match
}

// PeerInterface returns the concrete peer, or nil.
func (i *Interface) PeerInterface() *Interface { return i.match }

// AsInterface recovers the concrete *Interface behind a
// routingtable.Interface value. Callers outside this package (notably
// internal/pdafactory) hold interfaces through the narrow contract but
// still need the routing table it owns; this is the single sanctioned
// downcast point rather than every caller doing its own type assertion.
func AsInterface(i routingtable.Interface) *Interface {
	return i.(*Interface)
}

// SetMatch pairs two interfaces bidirectionally, maintaining the invariant
// a.Match == b <=> b.Match == a.
func SetMatch(a, b *Interface) {
	a.match = b
	b.match = a
}

// Router owns a set of named Interfaces.
type Router struct {
	Name       string
	Aliases    []string
	Location   *Location
	Interfaces []*Interface
	byName     map[string]*Interface
}

func NewRouter(name string, aliases ...string) *Router {
	return &Router{Name: name, Aliases: aliases, byName: map[string]*Interface{}}
}

// AddInterface creates and registers a new interface owned by r.
func (r *Router) AddInterface(name string, globalID uint64, virtual bool) (*Interface, error) {
	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("router %s: duplicate interface name %q", r.Name, name)
	}
	ifc := &Interface{
		LocalID:  uint64(len(r.Interfaces)),
		globalID: globalID,
		Name:     name,
		Router:   r,
		Table:    routingtable.New(),
		Virtual:  virtual,
	}
	r.Interfaces = append(r.Interfaces, ifc)
	r.byName[name] = ifc
	return ifc, nil
}

// InterfaceByName resolves an interface declared on this router, by its
// primary name.
func (r *Router) InterfaceByName(name string) (*Interface, bool) {
	i, ok := r.byName[name]
	return i, ok
}

// Network owns all Routers and maintains the global interface index and
// name to router mapping. Immutable after construction for verification.
type Network struct {
	Name       string
	Routers    []*Router
	interfaces []*Interface // global interface index, append-only
	byName     map[string]*Router
}

func New(name string) *Network {
	return &Network{Name: name, byName: map[string]*Router{}}
}

// AddRouter registers a new router (and any aliases) under the network.
func (n *Network) AddRouter(r *Router) error {
	names := append([]string{r.Name}, r.Aliases...)
	for _, nm := range names {
		if _, exists := n.byName[nm]; exists {
			return fmt.Errorf("network %s: duplicate router name %q", n.Name, nm)
		}
	}
	for _, nm := range names {
		n.byName[nm] = r
	}
	n.Routers = append(n.Routers, r)
	for _, ifc := range r.Interfaces {
		n.registerInterface(ifc)
	}
	return nil
}

// registerInterface appends ifc to the global index, assigning GlobalID if
// unset (0 is reserved as "unset" since global ids are otherwise assigned
// sequentially starting at 1... callers that pre-assign global ids from
// input JSON pass a nonzero value).
func (n *Network) registerInterface(ifc *Interface) {
	if ifc.globalID == 0 {
		ifc.globalID = uint64(len(n.interfaces)) + 1
	}
	n.interfaces = append(n.interfaces, ifc)
}

// RouterByName resolves a router by any of its declared names.
func (n *Network) RouterByName(name string) (*Router, bool) {
	r, ok := n.byName[name]
	return r, ok
}

// Interfaces returns the global interface index.
func (n *Network) Interfaces() []*Interface { return n.interfaces }

// InterfaceByGlobalID does a linear scan; the index is small relative to
// PDA sizes and this is only used during parsing/validation, not on the
// verification hot path.
func (n *Network) InterfaceByGlobalID(id uint64) (*Interface, bool) {
	for _, i := range n.interfaces {
		if i.globalID == id {
			return i, true
		}
	}
	return nil, false
}

// Validate checks the Interface pairing invariant: a.Match == b iff
// b.Match == a, and virtual interfaces carry no peer.
func (n *Network) Validate() error {
	for _, ifc := range n.interfaces {
		if ifc.Virtual {
			if ifc.match != nil {
				return fmt.Errorf("interface %s/%s: virtual interface has a peer", ifc.Router.Name, ifc.Name)
			}
			continue
		}
		if ifc.match != nil && ifc.match.match != ifc {
			return fmt.Errorf("interface %s/%s: asymmetric peer pairing", ifc.Router.Name, ifc.Name)
		}
		if err := ifc.Table.Validate(); err != nil {
			return fmt.Errorf("interface %s/%s: %w", ifc.Router.Name, ifc.Name, err)
		}
	}
	return nil
}
