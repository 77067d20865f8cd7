package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/genome"
	mock_plugin "github.com/glorpus-work/gogenome/pkg/plugin/mocks"
	mock_tools "github.com/glorpus-work/gogenome/pkg/tools/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func installedGenome(t *testing.T) *genome.Genome {
	t.Helper()
	g := genome.New(t.TempDir(), "tiny")
	require.NoError(t, os.MkdirAll(g.Dir, 0o755))
	require.NoError(t, os.WriteFile(g.FastaPath(), []byte(">chr1\nACGT\n"), 0o644))
	return g
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+ScriptExt), []byte(body), 0o644))
}

func TestLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mock_tools.NewMockRunner(ctrl)
	dir := t.TempDir()
	writeScript(t, dir, "touch", `x := 1`)

	plugins, err := Load([]string{"minimap2", " touch"}, dir, runner)
	require.NoError(t, err)
	require.Len(t, plugins, 2)
	assert.Equal(t, "minimap2", plugins[0].Name())
	assert.Equal(t, "touch", plugins[1].Name())
	assert.IsType(t, &Script{}, plugins[1])

	_, err = Load([]string{"bowtie9"}, dir, runner)
	assert.ErrorIs(t, err, errors.ErrPluginUnknown)

	_, err = Load([]string{"touch"}, "", runner)
	assert.ErrorIs(t, err, errors.ErrPluginUnknown)
}

func TestAvailable(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "blacklist", `x := 1`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	names, err := Available(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"blacklist", "minimap2"}, names)

	names, err = Available(filepath.Join(dir, "missing"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"minimap2"}, names)
}

func TestRunAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := installedGenome(t)
	ctx := context.Background()

	failing := mock_plugin.NewMockPlugin(ctrl)
	failing.EXPECT().Name().Return("broken").AnyTimes()
	failing.EXPECT().AfterGenomeDownload(ctx, g, 2, true).Return(errors.ErrToolFailed)

	ok := mock_plugin.NewMockPlugin(ctrl)
	ok.EXPECT().Name().Return("fine").AnyTimes()
	ok.EXPECT().AfterGenomeDownload(ctx, g, 2, true).Return(nil)

	err := RunAll(ctx, []Plugin{failing, ok}, g, 2, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrToolFailed)
	assert.Contains(t, err.Error(), "plugin broken")

	assert.NoError(t, RunAll(ctx, nil, g, 1, false))
}

func TestRunAll_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mock_plugin.NewMockPlugin(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunAll(ctx, []Plugin{p}, installedGenome(t), 1, false)
	assert.ErrorIs(t, err, context.Canceled)
}
