package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScript(t *testing.T) {
	dir := t.TempDir()
	g := installedGenome(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		body    string
		wantErr error
		check   func(t *testing.T)
	}{
		{
			name: "writes into genome dir",
			body: `
os := import("os")
genome := import("genome")
f := os.create(genome.dir + "/plugin.txt")
f.write_string(genome.name + " " + string(threads) + " " + string(force))
f.close()
`,
			check: func(t *testing.T) {
				got, err := os.ReadFile(filepath.Join(g.Dir, "plugin.txt"))
				require.NoError(t, err)
				assert.Equal(t, "tiny 3 false", string(got))
			},
		},
		{
			name: "empty err is success",
			body: `err := ""`,
		},
		{
			name:    "err string fails",
			body:    `err := "index build failed"`,
			wantErr: errors.ErrPluginScript,
		},
		{
			name:    "err value fails",
			body:    `err := error("bad genome")`,
			wantErr: errors.ErrPluginScript,
		},
		{
			name:    "compile error",
			body:    `this is not tengo`,
			wantErr: errors.ErrPluginScript,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "s.tengo")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			err := NewScript("s", path).AfterGenomeDownload(ctx, g, 3, false)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t)
			}
		})
	}
}

func TestScript_Missing(t *testing.T) {
	err := NewScript("gone", filepath.Join(t.TempDir(), "gone.tengo")).
		AfterGenomeDownload(context.Background(), installedGenome(t), 1, false)
	assert.Error(t, err)
}
