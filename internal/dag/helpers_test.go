package dag

import (
	"testing"
	"time"

	"github.com/GnosisFoundation/git-ts/internal/tensor"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	now := testEpoch
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Init(afero.NewMemMapFs(), "/r", WithClock(fixedClock()))
	require.NoError(t, err)
	return repo
}

func f32(t testing.TB, values ...float32) *tensor.Tensor {
	t.Helper()
	tn, err := tensor.FromFloat32(tensor.Shape{len(values)}, values)
	require.NoError(t, err)
	return tn
}

func collection(t testing.TB, values ...float32) tensor.Collection {
	t.Helper()
	return tensor.Collection{"w": f32(t, values...)}
}

func requireSameCommit(t *testing.T, want, got *Commit) {
	t.Helper()
	require.Equal(t, want.Hash, got.Hash)
	require.Equal(t, want.ParentHash, got.ParentHash)
	require.True(t, want.Timestamp.Equal(got.Timestamp.Time), "timestamp %s != %s", want.Timestamp, got.Timestamp)
	require.Equal(t, want.Message, got.Message)
	require.Equal(t, want.Metadata, got.Metadata)
}
