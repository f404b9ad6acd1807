package dag

import (
	"crypto/sha512"
	"strings"
	"testing"

	"github.com/GnosisFoundation/git-ts/internal/tensor"
	gocid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCollection_KnownInput(t *testing.T) {
	w := f32(t, 1, 2, 3)
	d, err := HashCollection(tensor.Collection{"w": w})
	require.NoError(t, err)

	h := sha512.New()
	h.Write([]byte("w"))
	h.Write([]byte("[3]"))
	h.Write([]byte("f32"))
	h.Write(w.Data)
	assert.Equal(t, h.Sum(nil), d[:])
}

func TestHashCollection_OrderIndependent(t *testing.T) {
	a, b := f32(t, 1), f32(t, 2)

	first := tensor.Collection{}
	first["a"] = a
	first["b"] = b
	second := tensor.Collection{}
	second["b"] = b
	second["a"] = a

	d1, err := HashCollection(first)
	require.NoError(t, err)
	d2, err := HashCollection(second)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestHashCollection_Distinguishes(t *testing.T) {
	base := collection(t, 1, 2, 3, 4)
	want, err := HashCollection(base)
	require.NoError(t, err)

	reshaped, err := tensor.New(tensor.F32, tensor.Shape{2, 2}, base["w"].Data)
	require.NoError(t, err)
	retyped, err := tensor.New(tensor.I32, tensor.Shape{4}, base["w"].Data)
	require.NoError(t, err)

	for name, c := range map[string]tensor.Collection{
		"name":  {"v": base["w"]},
		"shape": {"w": reshaped},
		"dtype": {"w": retyped},
		"bytes": collection(t, 1, 2, 3, 5),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := HashCollection(c)
			require.NoError(t, err)
			assert.NotEqual(t, want, got)
		})
	}
}

// Fields are concatenated without separators, so a name can absorb the
// fields of the tensor before it.
func TestHashCollection_UnseparatedFields(t *testing.T) {
	u8 := func(b byte) *tensor.Tensor {
		tn, err := tensor.New(tensor.U8, tensor.Shape{1}, []byte{b})
		require.NoError(t, err)
		return tn
	}
	two := tensor.Collection{"a": u8('b'), "c": u8('Z')}
	one := tensor.Collection{"a[1]u8bc": u8('Z')}

	d1, err := HashCollection(two)
	require.NoError(t, err)
	d2, err := HashCollection(one)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestHashCollection_Empty(t *testing.T) {
	d, err := HashCollection(tensor.Collection{})
	require.NoError(t, err)
	assert.Equal(t, sha512.Sum512(nil), [64]byte(d))
}

func TestHashCollection_NilTensor(t *testing.T) {
	_, err := HashCollection(tensor.Collection{"w": nil})
	require.ErrorIs(t, err, ErrCodec)
}

func TestParseDigest(t *testing.T) {
	d, err := HashCollection(collection(t, 1))
	require.NoError(t, err)

	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
	assert.Len(t, d.String(), 128)
	assert.Equal(t, d.String()[:12], d.Short())
	assert.False(t, d.IsZero())
	assert.True(t, Digest{}.IsZero())

	_, err = ParseDigest("abc")
	assert.ErrorIs(t, err, ErrCodec)
	_, err = ParseDigest(strings.Repeat("zz", DigestSize))
	assert.ErrorIs(t, err, ErrCodec)
}

func TestDigest_CID(t *testing.T) {
	d, err := HashCollection(collection(t, 1, 2))
	require.NoError(t, err)

	c := d.CID()
	assert.Equal(t, uint64(gocid.Raw), c.Prefix().Codec)
	assert.Equal(t, uint64(1), c.Version())

	decoded, err := gocid.Decode(d.CIDString())
	require.NoError(t, err)
	assert.True(t, c.Equals(decoded))
	assert.True(t, strings.HasPrefix(d.CIDString(), "b"), "expected base32 multibase prefix")
}
