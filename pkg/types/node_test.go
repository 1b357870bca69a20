package types

import (
	"testing"
	"time"
)

func TestNewNodeSnapshotCopiesBackingArray(t *testing.T) {
	nodes := []ServiceNode{{Ed25519PubKeyHex: "a"}, {Ed25519PubKeyHex: "b"}}
	snap := NewNodeSnapshot(nodes, time.Now())

	nodes[0].Ed25519PubKeyHex = "mutated"

	if snap.Nodes[0].Ed25519PubKeyHex != "a" {
		t.Fatalf("snapshot observed caller mutation: %+v", snap.Nodes[0])
	}
}

func TestNodeSnapshotAge(t *testing.T) {
	snap := NewNodeSnapshot(nil, time.Now().Add(-5*time.Second))
	if snap.Age() < 5*time.Second {
		t.Fatalf("Age() = %v, want >= 5s", snap.Age())
	}
}

func TestDestinationSwarmPubkeyOptional(t *testing.T) {
	d := Destination{Host: "h", Port: 443, Protocol: "https", Target: "/t"}
	if !d.Valid() {
		t.Fatal("destination without SwarmPubkey should still be valid")
	}
	d.SwarmPubkey = "05aa"
	if !d.Valid() {
		t.Fatal("destination with SwarmPubkey should still be valid")
	}
}
