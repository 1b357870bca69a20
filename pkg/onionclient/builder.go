// Package onionclient composes onion envelopes: it selects a path,
// then iterates from the final destination backward through the
// chosen hops, sealing one AES-GCM layer per hop, and produces an
// outermost wrapper ready for Transport to deliver to the entry node.
//
// The concurrency shape — an RWMutex guarding a snapshot of the
// node list, refreshed wholesale rather than mutated in place — is
// grounded on the teacher's CircuitManager, which guards its circuit
// table the same way against concurrent creation and cleanup.
package onionclient

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/oxen-lsrpc/onion-client/internal/logging"
	"github.com/oxen-lsrpc/onion-client/internal/metrics"
	"github.com/oxen-lsrpc/onion-client/pkg/frame"
	"github.com/oxen-lsrpc/onion-client/pkg/onioncrypto"
	"github.com/oxen-lsrpc/onion-client/pkg/pathselect"
	"github.com/oxen-lsrpc/onion-client/pkg/types"
)

// Builder holds the current service-node snapshot and builds onion
// envelopes against it.
type Builder struct {
	mu         sync.RWMutex
	snap       types.NodeSnapshot
	pathLength int

	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewBuilder creates a Builder with the given path length. log and m
// may be nil; a nil logger/metrics set disables the corresponding
// instrumentation.
func NewBuilder(pathLength int, log *logging.Logger, m *metrics.Metrics) *Builder {
	return &Builder{
		pathLength: pathLength,
		log:        log,
		metrics:    m,
	}
}

// SetNodes atomically replaces the candidate service-node snapshot.
// Builds already in flight continue to observe the snapshot they
// started with; a Build that starts after SetNodes returns observes
// the new one, since NodeSnapshot is never mutated in place.
func (b *Builder) SetNodes(nodes []types.ServiceNode) {
	b.SetSnapshot(types.NewNodeSnapshot(nodes, time.Now()))
}

// SetSnapshot installs an already-stamped NodeSnapshot, e.g. one
// returned directly by DirectoryClient.FetchSnapshot.
func (b *Builder) SetSnapshot(snap types.NodeSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap = snap
}

// Snapshot returns the current node snapshot, including when it was
// fetched.
func (b *Builder) Snapshot() types.NodeSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

func (b *Builder) snapshot() []types.ServiceNode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap.Nodes
}

// Build constructs an OnionEnvelope for payload addressed to
// destination, selecting a fresh path of b.pathLength hops from the
// current node snapshot. rng supplies all randomness (ephemeral keys
// and IVs); nil uses the OS CSPRNG.
func (b *Builder) Build(rng io.Reader, payload interface{}, destination types.Destination) (*types.OnionEnvelope, error) {
	start := time.Now()
	log := b.log
	if log != nil {
		log = log.WithComponent("onionbuilder")
	}

	if !destination.Valid() {
		b.recordOutcome("invalid_destination")
		return nil, newErr(ErrInvalidDestination, "destination failed validity predicate", nil)
	}

	path, err := pathselect.Select(b.snapshot(), b.pathLength, rng)
	if err != nil {
		b.recordOutcome("path_error")
		return nil, err
	}

	finalKp, err := onioncrypto.GenerateKeypair(rng)
	if err != nil {
		b.recordOutcome("crypto_error")
		return nil, newErr(ErrCrypto, "generate final ephemeral keypair", err)
	}
	defer finalKp.Zero()

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		b.recordOutcome("json_error")
		return nil, newErr(ErrJSONEncode, "marshal payload", err)
	}

	blobPrev := frame.Encode(payloadBytes, innermostRoute)
	nextEphPub := finalKp.Public

	n := len(path)
	for i := n - 1; i >= 0; i-- {
		hopKp, err := onioncrypto.GenerateKeypair(rng)
		if err != nil {
			b.recordOutcome("crypto_error")
			return nil, newErr(ErrCrypto, "generate hop ephemeral keypair", err)
		}

		routingBytes, err := encodeRouting(i, n, path[i+1:], destination, nextEphPub)
		if err != nil {
			hopKp.Zero()
			b.recordOutcome("json_error")
			return nil, newErr(ErrJSONEncode, "marshal routing metadata", err)
		}

		layerPlain := frame.Encode(blobPrev, routingBytes)

		peerPub, err := decodeHexKey(path[i].X25519PubKeyHex)
		if err != nil {
			hopKp.Zero()
			b.recordOutcome("crypto_error")
			return nil, newErr(ErrCrypto, "decode hop x25519 public key", err)
		}

		sealed, err := onioncrypto.Seal(rng, layerPlain, peerPub, hopKp.Secret)
		hopKp.Zero()
		if err != nil {
			b.recordOutcome("crypto_error")
			return nil, newErr(ErrCrypto, "seal onion layer", err)
		}

		blobPrev = sealed
		nextEphPub = hopKp.Public
	}

	outer, err := json.Marshal(outerMeta{
		EphemeralKey: hex.EncodeToString(nextEphPub[:]),
		EncType:      encTypeAESGCM,
	})
	if err != nil {
		b.recordOutcome("json_error")
		return nil, newErr(ErrJSONEncode, "marshal outer metadata", err)
	}

	wrapper := frame.Encode(blobPrev, outer)

	if log != nil {
		log.Debug().Int("layers", n).Int("wrapper_len", len(wrapper)).Msg("built onion envelope")
	}
	b.recordOutcome("ok")
	b.recordLayers(n)
	b.recordDuration(start)

	return &types.OnionEnvelope{
		Bytes:             wrapper,
		Entry:             types.HopFromNode(path[0]),
		EntryEphemeralPub: nextEphPub,
	}, nil
}

// encodeRouting builds the routing_i JSON for layer i of an N-layer
// path. rest is path[i+1:], used only to name the next hop when i is
// not the terminal layer.
func encodeRouting(i, n int, rest []types.ServiceNode, destination types.Destination, nextEphPub [32]byte) ([]byte, error) {
	if i == n-1 {
		return json.Marshal(terminalRouting{
			Host:        destination.Host,
			Port:        destination.Port,
			Protocol:    destination.Protocol,
			Target:      destination.Target,
			SwarmPubkey: destination.SwarmPubkey,
		})
	}
	return json.Marshal(intermediateRouting{
		Destination:  rest[0].Ed25519PubKeyHex,
		EphemeralKey: hex.EncodeToString(nextEphPub[:]),
		EncType:      encTypeAESGCM,
	})
}

func decodeHexKey(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, hex.ErrLength
	}
	copy(out[:], b)
	return out, nil
}

// errorComponent attributes a build outcome to the package that
// actually raised it, so ErrorsTotal reflects where failures
// originate rather than lumping everything under onionclient.
func errorComponent(outcome string) string {
	switch outcome {
	case "path_error":
		return "pathselect"
	case "crypto_error":
		return "onioncrypto"
	default:
		return "onionclient"
	}
}

func (b *Builder) recordOutcome(outcome string) {
	if b.metrics != nil {
		b.metrics.BuildsTotal.WithLabelValues(outcome).Inc()
		if outcome != "ok" {
			b.metrics.RecordError(errorComponent(outcome), outcome)
		}
	}
}

func (b *Builder) recordLayers(n int) {
	if b.metrics != nil {
		b.metrics.LayersPerBuild.Observe(float64(n))
	}
}

func (b *Builder) recordDuration(start time.Time) {
	if b.metrics != nil {
		b.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	}
}
