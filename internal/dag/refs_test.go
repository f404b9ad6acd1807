package dag

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefStore(t *testing.T) (*RefStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewRefStore(fs, "/refs")
	require.NoError(t, err)
	return s, fs
}

func TestRefStore_SetGet(t *testing.T) {
	s, fs := newTestRefStore(t)
	d := Digest{0xab}

	require.NoError(t, s.Set(Heads, "main", d))
	assert.True(t, s.Has(Heads, "main"))
	assert.False(t, s.Has(Tags, "main"))

	got, err := s.Get(Heads, "main")
	require.NoError(t, err)
	assert.Equal(t, d, got)

	data, err := afero.ReadFile(fs, "/refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, d.String(), string(data))
}

func TestRefStore_Overwrite(t *testing.T) {
	s, _ := newTestRefStore(t)
	require.NoError(t, s.Set(Tags, "v1", Digest{1}))
	require.NoError(t, s.Set(Tags, "v1", Digest{2}))

	got, err := s.Get(Tags, "v1")
	require.NoError(t, err)
	assert.Equal(t, Digest{2}, got)
}

func TestRefStore_GetMissing(t *testing.T) {
	s, _ := newTestRefStore(t)
	_, err := s.Get(Heads, "nope")
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestRefStore_GetMalformed(t *testing.T) {
	s, fs := newTestRefStore(t)
	require.NoError(t, afero.WriteFile(fs, "/refs/heads/bad", []byte("not-hex"), 0644))
	_, err := s.Get(Heads, "bad")
	require.ErrorIs(t, err, ErrInvalidReference)

	// trailing newline from hand-edited refs is tolerated
	d := Digest{3}
	require.NoError(t, afero.WriteFile(fs, "/refs/heads/edited", []byte(d.String()+"\n"), 0644))
	got, err := s.Get(Heads, "edited")
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestRefStore_Delete(t *testing.T) {
	s, _ := newTestRefStore(t)
	require.NoError(t, s.Set(Heads, "dev", Digest{1}))
	require.NoError(t, s.Delete(Heads, "dev"))
	assert.False(t, s.Has(Heads, "dev"))

	err := s.Delete(Heads, "dev")
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestRefStore_ListNested(t *testing.T) {
	s, fs := newTestRefStore(t)
	require.NoError(t, s.Set(Heads, "main", Digest{1}))
	require.NoError(t, s.Set(Heads, "feature/lora", Digest{2}))
	require.NoError(t, s.Set(Heads, "alpha", Digest{3}))
	require.NoError(t, afero.WriteFile(fs, "/refs/heads/.tmp-999", []byte("x"), 0644))

	names, err := s.List(Heads)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "feature/lora", "main"}, names)

	tags, err := s.List(Tags)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestValidateRefName(t *testing.T) {
	for _, ok := range []string{"main", "feature/x", "v1.0", "release-2024"} {
		assert.NoError(t, ValidateRefName(ok), ok)
	}
	for _, bad := range []string{"", "/abs", "trail/", "a//b", "../escape", "a/./b", "x.lock", ".tmp-1", "back\\slash"} {
		assert.Error(t, ValidateRefName(bad), bad)
	}
}

func TestRefStore_RejectsInvalidNames(t *testing.T) {
	s, _ := newTestRefStore(t)
	err := s.Set(Heads, "../../HEAD", Digest{1})
	require.ErrorIs(t, err, ErrInvalidReference)
	err = s.Set(Namespace("remotes"), "x", Digest{1})
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestParseRefPath(t *testing.T) {
	tests := []struct {
		in   string
		ns   Namespace
		name string
	}{
		{"refs/heads/main", Heads, "main"},
		{"refs/tags/v1", Tags, "v1"},
		{"refs/heads/feature/x", Heads, "feature/x"},
		{"ref/heads/main", Heads, "main"},
	}
	for _, tt := range tests {
		ns, name, err := ParseRefPath(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.ns, ns, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
	}

	for _, bad := range []string{"main", "refs/remotes/x", "refs/heads/", "refs/heads"} {
		_, _, err := ParseRefPath(bad)
		assert.ErrorIs(t, err, ErrInvalidReference, bad)
	}
	assert.Equal(t, "refs/tags/v1", RefPath(Tags, "v1"))
}
