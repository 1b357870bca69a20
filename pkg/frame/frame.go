// Package frame implements the LayerFramer container used at every
// onion layer: a little-endian u32 size prefix, the inner blob, and a
// trailing routing-JSON tail. The same container is used both as the
// plaintext sealed by onioncrypto and, at the outermost layer, as the
// unencrypted wrapper sent to the entry hop.
package frame

import "encoding/binary"

// MaxInnerSize bounds the inner blob size Decode will accept, guarding
// against abusive or corrupt input. The format itself has no maximum.
const MaxInnerSize = 10 * 1024 * 1024 // 10 MiB

// Encode concatenates u32_LE(len(inner)) || inner || tail.
func Encode(inner []byte, tail []byte) []byte {
	out := make([]byte, 0, 4+len(inner)+len(tail))
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(inner)))
	out = append(out, sizeBuf[:]...)
	out = append(out, inner...)
	out = append(out, tail...)
	return out
}

// Decode splits a Frame into its inner blob and routing tail. It
// fails with ErrTruncated if data is shorter than the declared size,
// and ErrTooLarge if the declared size exceeds MaxInnerSize.
func Decode(data []byte) (inner []byte, tail []byte, err error) {
	if len(data) < 4 {
		return nil, nil, newErr(ErrTruncated, "missing size prefix")
	}
	size := binary.LittleEndian.Uint32(data[:4])
	if size > MaxInnerSize {
		return nil, nil, newErr(ErrTooLarge, "declared inner size exceeds cap")
	}
	end := 4 + int(size)
	if len(data) < end {
		return nil, nil, newErr(ErrTruncated, "inner blob shorter than declared size")
	}
	return data[4:end], data[end:], nil
}
