// Package types holds the wire-level data model shared by the path
// selector, onion builder, directory client and transport: service
// node directory entries, chosen path hops, destinations, and the
// envelope a build produces.
package types

import "time"

// ServiceNode is a single directory entry describing a candidate relay.
// It is immutable once observed; callers that need to mutate a field
// should copy it.
type ServiceNode struct {
	Ed25519PubKeyHex string `json:"pubkey_ed25519"`
	X25519PubKeyHex  string `json:"pubkey_x25519"`
	IP               string `json:"public_ip"`
	StoragePort      int    `json:"storage_port"`
	StorageLMQPort   int    `json:"storage_lmq_port"`
	SwarmID          uint64 `json:"swarm_id"`
}

// Valid reports whether n carries all fields required to route
// through it: Ed25519 identity, X25519 encryption key, IP, and HTTP
// storage port.
func (n ServiceNode) Valid() bool {
	return n.Ed25519PubKeyHex != "" && n.X25519PubKeyHex != "" && n.IP != "" && n.StoragePort != 0
}

// PathHop is a chosen member of the onion path, projected from a
// ServiceNode down to the fields a single request needs.
type PathHop struct {
	Ed25519PubKeyHex string
	X25519PubKeyHex  string
	IP               string
	Port             int
}

// HopFromNode projects a ServiceNode into a PathHop.
func HopFromNode(n ServiceNode) PathHop {
	return PathHop{
		Ed25519PubKeyHex: n.Ed25519PubKeyHex,
		X25519PubKeyHex:  n.X25519PubKeyHex,
		IP:               n.IP,
		Port:             n.StoragePort,
	}
}

// Destination is the terminal HTTP target the onion path ultimately
// reaches.
type Destination struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Target   string `json:"target"`

	// SwarmPubkey optionally addresses a storage-server swarm rather
	// than a single node's HTTP target. Left empty, the destination
	// behaves exactly as the four fields above describe; set, it is
	// carried into the terminal routing JSON as an additional
	// "x_loki_address" field so the terminal hop can route to the swarm
	// by pubkey instead of by host.
	SwarmPubkey string `json:"swarm_pubkey,omitempty"`
}

// Valid reports whether d carries all four mandatory fields.
func (d Destination) Valid() bool {
	if d.Host == "" || d.Target == "" {
		return false
	}
	if d.Protocol != "http" && d.Protocol != "https" {
		return false
	}
	return d.Port >= 1 && d.Port <= 65535
}

// OnionEnvelope is the output of OnionBuilder.Build: the opaque
// outermost wrapper bytes, the entry hop they must be sent to, and the
// ephemeral public key embedded in the wrapper's own metadata.
type OnionEnvelope struct {
	Bytes             []byte
	Entry             PathHop
	EntryEphemeralPub [32]byte
}

// NodeSnapshot is an immutable, timestamped view of a directory fetch.
// DirectoryClient produces one per successful FetchSnapshot; OnionBuilder holds
// the latest one under its own lock. Because the slice is never mutated
// after NewNodeSnapshot returns, a build in flight that already read the
// snapshot's Nodes keeps observing that exact list even if a concurrent
// SetNodes installs a newer snapshot.
type NodeSnapshot struct {
	Nodes     []ServiceNode
	FetchedAt time.Time
}

// NewNodeSnapshot copies nodes so the snapshot is independent of the
// caller's backing array.
func NewNodeSnapshot(nodes []ServiceNode, fetchedAt time.Time) NodeSnapshot {
	cp := make([]ServiceNode, len(nodes))
	copy(cp, nodes)
	return NodeSnapshot{Nodes: cp, FetchedAt: fetchedAt}
}

// Age reports how long ago the snapshot was fetched.
func (s NodeSnapshot) Age() time.Duration {
	return time.Since(s.FetchedAt)
}
