package cmd

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/GnosisFoundation/git-ts/internal/tensor"
	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v2"
)

const workDir = "/work"

func TestMain(m *testing.M) {
	color.NoColor = true
	goleak.VerifyTestMain(m)
}

func runCLI(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd(fs)
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"-C", workDir, "--loglevel", "none"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, fs afero.Fs, args ...string) string {
	t.Helper()
	out, err := runCLI(t, fs, args...)
	require.NoError(t, err, "wts %s", strings.Join(args, " "))
	return out
}

func writeModel(t *testing.T, fs afero.Fs, name string, values ...float32) {
	t.Helper()
	w, err := tensor.FromFloat32(tensor.Shape{len(values)}, values)
	require.NoError(t, err)
	require.NoError(t, tensor.Save(fs, workDir+"/"+name, tensor.Collection{"w": w}))
}

func initRepo(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(workDir, 0755))
	out := mustRun(t, fs, "init")
	assert.Equal(t, "Initialized wts repository in /work/.wts\n", out)
	return fs
}

func headDigest(t *testing.T, fs afero.Fs) dag.Digest {
	t.Helper()
	repo, err := dag.Open(fs, workDir)
	require.NoError(t, err)
	d, err := repo.ResolveHead()
	require.NoError(t, err)
	return d
}

var commitLine = regexp.MustCompile(`^\[main( \(root-commit\))? [0-9a-f]{12}\] .*\n$`)

func TestCommit_AdvancesBranch(t *testing.T) {
	fs := initRepo(t)

	writeModel(t, fs, "model.safetensors", 1, 2, 3)
	out := mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "first")
	assert.Regexp(t, commitLine, out)
	assert.Contains(t, out, "(root-commit)")
	first := headDigest(t, fs)

	writeModel(t, fs, "model.safetensors", 1, 2, 4)
	out = mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "second", "-d", `{"loss": 0.5}`)
	assert.Regexp(t, commitLine, out)
	assert.NotContains(t, out, "(root-commit)")
	second := headDigest(t, fs)
	require.NotEqual(t, first, second)

	repo, err := dag.Open(fs, workDir)
	require.NoError(t, err)
	commit, err := repo.GetCommit(second)
	require.NoError(t, err)
	parent, ok := commit.Parent()
	require.True(t, ok)
	assert.Equal(t, first, parent)
	assert.Equal(t, map[string]interface{}{"loss": 0.5}, commit.Metadata)
}

func TestCommit_Unchanged(t *testing.T) {
	fs := initRepo(t)
	writeModel(t, fs, "model.safetensors", 1)
	mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "one")

	out := mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "again")
	assert.Equal(t, "nothing to commit, tensors unchanged\n", out)
}

func TestCommit_RevertToAncestor(t *testing.T) {
	fs := initRepo(t)
	writeModel(t, fs, "model.safetensors", 1)
	mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "a")
	a := headDigest(t, fs)
	writeModel(t, fs, "model.safetensors", 2)
	mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "b")
	b := headDigest(t, fs)

	writeModel(t, fs, "model.safetensors", 1)
	out := mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "back to a")
	assert.Equal(t, "nothing to commit, tensors match earlier commit "+a.Short()+"\n", out)
	assert.Equal(t, b, headDigest(t, fs), "branch must not move")

	out = mustRun(t, fs, "log", "--oneline")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestCommit_NoAdvanceAndParent(t *testing.T) {
	fs := initRepo(t)
	writeModel(t, fs, "a.safetensors", 1)
	writeModel(t, fs, "b.safetensors", 2)
	mustRun(t, fs, "commit", "-f", "a.safetensors", "-m", "a")
	a := headDigest(t, fs)

	mustRun(t, fs, "commit", "-f", "b.safetensors", "-m", "b", "--no-advance", "--parent", a.String())
	assert.Equal(t, a, headDigest(t, fs), "branch must not move")
}

func TestCommit_Errors(t *testing.T) {
	fs := initRepo(t)

	_, err := runCLI(t, fs, "commit", "-m", "no file")
	require.Error(t, err)

	_, err = runCLI(t, fs, "commit", "-f", "missing.safetensors")
	require.Error(t, err)

	writeModel(t, fs, "model.safetensors", 1)
	_, err = runCLI(t, fs, "commit", "-f", "model.safetensors", "-d", "{bad")
	require.ErrorContains(t, err, "--metadata")
}

func TestNotARepository(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := runCLI(t, fs, "log")
	require.ErrorContains(t, err, "wts init")
}

func TestInit_BranchFromEnv(t *testing.T) {
	t.Setenv("WTS_BRANCH", "trunk")
	fs := initRepo(t)
	assert.Equal(t, "trunk (no commits yet)\n", mustRun(t, fs, "head"))
}

func TestInit_BranchFlag(t *testing.T) {
	fs := afero.NewMemMapFs()
	mustRun(t, fs, "init", "-b", "dev", "sub")
	data, err := afero.ReadFile(fs, "/work/sub/.wts/HEAD")
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/dev", string(data))
}

func TestInvalidLogLevel(t *testing.T) {
	fs := initRepo(t)
	root := newRootCmd(fs)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"-C", workDir, "--loglevel", "chatty", "head"})
	require.Error(t, root.Execute())
}

func TestBranchAndTag(t *testing.T) {
	fs := initRepo(t)
	writeModel(t, fs, "model.safetensors", 1)
	mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "one")
	d := headDigest(t, fs)

	out := mustRun(t, fs, "branch", "dev")
	assert.Equal(t, "refs/heads/dev -> "+d.Short()+"\n", out)
	mustRun(t, fs, "tag", "v1", "-c", "main")

	assert.Equal(t, "  dev\n* main\n", mustRun(t, fs, "branch"))
	assert.Equal(t, "  v1\n", mustRun(t, fs, "tag"))

	_, err := runCLI(t, fs, "branch", "-d", "main")
	require.ErrorIs(t, err, dag.ErrInvalidReference)

	mustRun(t, fs, "head", "dev")
	assert.Equal(t, "dev "+d.String()+"\n", mustRun(t, fs, "head"))
	assert.Equal(t, "Deleted branch main\n", mustRun(t, fs, "branch", "-d", "main"))
	assert.Equal(t, "Deleted tag v1\n", mustRun(t, fs, "tag", "-d", "v1"))

	_, err = runCLI(t, fs, "tag", "v2", "-c", "nope")
	require.ErrorIs(t, err, dag.ErrInvalidReference)
}

func TestShow(t *testing.T) {
	fs := initRepo(t)
	writeModel(t, fs, "model.safetensors", 1)
	mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "one")
	writeModel(t, fs, "model.safetensors", 2)
	mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "two", "-d", `{"epoch": 2}`)
	d := headDigest(t, fs)

	var view map[string]interface{}
	out := mustRun(t, fs, "show", "-o", "json")
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(out, &view))
	assert.Equal(t, d.String(), view["hash"])
	assert.Equal(t, d.CIDString(), view["cid"])
	assert.Equal(t, "two", view["message"])
	assert.Equal(t, map[string]interface{}{"epoch": float64(2)}, view["metadata"])
	assert.NotEmpty(t, view["parent"])

	var yview map[string]interface{}
	out = mustRun(t, fs, "show", d.String())
	require.NoError(t, yaml.Unmarshal([]byte(out), &yview))
	assert.Equal(t, "two", yview["message"])

	_, err := runCLI(t, fs, "show", "-o", "xml")
	require.Error(t, err)
}

func TestCatFileAndExport(t *testing.T) {
	fs := initRepo(t)
	writeModel(t, fs, "model.safetensors", 1, 2, 3)
	mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", "one")

	out := mustRun(t, fs, "cat-file")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"NAME", "DTYPE", "SHAPE", "SIZE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"w", "f32", "[3]", "12B"}, strings.Fields(lines[1]))

	mustRun(t, fs, "export", "-o", "out.safetensors")
	want, err := tensor.Load(fs, "/work/model.safetensors")
	require.NoError(t, err)
	got, err := tensor.Load(fs, "/work/out.safetensors")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestLog(t *testing.T) {
	fs := initRepo(t)
	for i, msg := range []string{"one", "two", "three"} {
		writeModel(t, fs, "model.safetensors", float32(i))
		mustRun(t, fs, "commit", "-f", "model.safetensors", "-m", msg)
	}

	out := mustRun(t, fs, "log", "--oneline")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], " three"))
	assert.True(t, strings.HasSuffix(lines[2], " one"))

	out = mustRun(t, fs, "log", "-n", "2")
	assert.Equal(t, 2, strings.Count(out, "commit "))
	assert.Contains(t, out, "    three\n")
	assert.NotContains(t, out, "    one\n")
}
