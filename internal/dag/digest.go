package dag

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/GnosisFoundation/git-ts/internal/tensor"
	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// DigestSize is the length of a SHA-512 digest.
const DigestSize = 64

// Digest identifies a tensor collection by its content.
type Digest [DigestSize]byte

// HashCollection computes the SHA-512 content digest of c. Names are
// consumed in sorted order; each tensor contributes its name, shape
// descriptor, dtype identifier and raw bytes.
func HashCollection(c tensor.Collection) (Digest, error) {
	h, err := multihash.GetHasher(multihash.SHA2_512)
	if err != nil {
		return Digest{}, fmt.Errorf("sha2-512 hasher: %w", err)
	}
	for _, name := range c.Names() {
		t := c[name]
		if t == nil {
			return Digest{}, newError(KindCodec, name, tensor.ErrInvalidTensor)
		}
		_, _ = io.WriteString(h, name)
		_, _ = io.WriteString(h, t.Shape.String())
		_, _ = io.WriteString(h, t.DType.String())
		_, _ = h.Write(t.Bytes())
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// ParseDigest decodes a hex encoded digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s) != hex.EncodedLen(DigestSize) {
		return d, newError(KindCodec, s, fmt.Errorf("digest must be %d hex characters, got %d", hex.EncodedLen(DigestSize), len(s)))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Digest{}, newError(KindCodec, s, err)
	}
	return d, nil
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short is the first 12 hex characters, for display.
func (d Digest) Short() string {
	return d.String()[:12]
}

// IsZero reports whether d is the zero value.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Multihash wraps the digest as a sha2-512 multihash.
func (d Digest) Multihash() multihash.Multihash {
	mh, err := multihash.Encode(d[:], multihash.SHA2_512)
	if err != nil {
		// only fails on unknown codes or length mismatch
		panic(err)
	}
	return mh
}

// CID returns the digest as a CIDv1 with the raw codec.
func (d Digest) CID() gocid.Cid {
	return gocid.NewCidV1(gocid.Raw, d.Multihash())
}

// CIDString returns the base32lower encoding of the digest's CID.
func (d Digest) CIDString() string {
	encoded, _ := multibase.Encode(multibase.Base32, d.CID().Bytes())
	return encoded
}
