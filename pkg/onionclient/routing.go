package onionclient

// outerMeta is the unencrypted wrapper's JSON tail: just enough for
// the entry hop to derive its key.
type outerMeta struct {
	EphemeralKey string `json:"ephemeral_key"`
	EncType      string `json:"enc_type"`
}

// intermediateRouting addresses the next hop by identity and carries
// the ephemeral public key that hop must use to derive its key.
type intermediateRouting struct {
	Destination  string `json:"destination"`
	EphemeralKey string `json:"ephemeral_key"`
	EncType      string `json:"enc_type"`
}

// terminalRouting is carried only by the last layer: the HTTP target
// the terminal hop must call out to. SwarmPubkey is omitted from the
// JSON entirely for the common single-destination case; when set, it
// rides along as an additional X-Loki-Address-style field so the
// terminal hop can route to a storage-server swarm by pubkey instead.
type terminalRouting struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Protocol    string `json:"protocol"`
	Target      string `json:"target"`
	SwarmPubkey string `json:"x_loki_address,omitempty"`
}

// innermostRoute is the minimal route annotation on the innermost
// frame; the destination itself lives only in terminalRouting.
var innermostRoute = []byte(`{"headers":{}}`)

const encTypeAESGCM = "aes-gcm"
