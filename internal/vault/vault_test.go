package vault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wizzomafizzo/setdeck/internal/database"
	"github.com/wizzomafizzo/setdeck/internal/testutil"
)

const (
	bundlePath = "/packs/glow.zip"
	vaultDir   = "/data/vault"
)

var presetNames = []string{"A.setting", "B.setting", "C.setting", "D.setting", "E.setting"}

func buildBundle(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range order {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func fiveBundle(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{"readme.txt": "pack"}
	var order []string
	for _, n := range presetNames {
		thumb := n[:1] + ".png"
		files[n] = "{ Tools = ordered() { } }"
		files[thumb] = "png"
		order = append(order, n, thumb)
	}
	order = append(order, "readme.txt")
	return buildBundle(t, files, order)
}

func entryNames(t *testing.T, fs afero.Fs, path string) []string {
	t.Helper()
	var names []string
	require.NoError(t, readArchive(fs, path, func(r *zip.Reader) error {
		for _, f := range r.File {
			names = append(names, f.Name)
		}
		return nil
	}))
	return names
}

func digest(t *testing.T, fs afero.Fs, path string) [32]byte {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return sha256.Sum256(data)
}

func newTestVault(t *testing.T, fs afero.Fs, opts Options) *Vault {
	t.Helper()
	m, err := database.NewManager(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return New(fs, vaultDir, NewStore(m.DB()), opts)
}

func setup(t *testing.T, fs afero.Fs, opts Options) (*Service, *Vault, []byte) {
	t.Helper()
	original := fiveBundle(t)
	require.NoError(t, afero.WriteFile(fs, bundlePath, original, 0o644))
	v := newTestVault(t, fs, opts)
	return NewService(v), v, original
}

func activeNames(l Listing) []string {
	var out []string
	for _, p := range l.Active {
		out = append(out, p.Name)
	}
	return out
}

func TestDisableAndReenableScenario(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.NewTestContext(t)
	fs := afero.NewMemMapFs()
	svc, v, original := setup(t, fs, Options{})

	listing := svc.ListPresets(ctx, bundlePath)
	require.True(t, listing.OK, listing.Message)
	assert.Equal(t, presetNames, activeNames(listing))
	assert.Empty(t, listing.Disabled)

	res := svc.SetDisabledList(ctx, bundlePath, []string{"D.setting", "B.setting"})
	require.True(t, res.OK, res.Message)

	listing = svc.ListPresets(ctx, bundlePath)
	require.True(t, listing.OK)
	assert.Len(t, listing.Active, 3)
	assert.Equal(t, []string{"B.setting", "D.setting"}, listing.Disabled)
	assert.Equal(t,
		[]string{"A.setting", "A.png", "C.setting", "C.png", "E.setting", "E.png", "readme.txt"},
		entryNames(t, fs, bundlePath))

	res = svc.Toggle(ctx, bundlePath, "B.setting")
	require.True(t, res.OK, res.Message)
	assert.Equal(t, "enabled B.setting", res.Message)

	listing = svc.ListPresets(ctx, bundlePath)
	assert.Len(t, listing.Active, 4)
	assert.Equal(t, []string{"D.setting"}, listing.Disabled)

	canonical, err := CanonicalPath(bundlePath)
	require.NoError(t, err)
	vp, err := v.VaultPath(bundlePath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(vaultDir, Hash(canonical)+".zip"), vp)

	assert.Equal(t, sha256.Sum256(original), digest(t, fs, vp))
	assert.NotEqual(t, digest(t, fs, vp), digest(t, fs, bundlePath))
}

func TestRebuildKeepsEntryContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := afero.NewMemMapFs()
	svc, _, _ := setup(t, fs, Options{})

	require.True(t, svc.SetDisabledList(ctx, bundlePath, []string{"A.setting"}).OK)
	require.NoError(t, readArchive(fs, bundlePath, func(r *zip.Reader) error {
		for _, f := range r.File {
			if f.Name != "readme.txt" {
				continue
			}
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, "pack", string(data))
			return rc.Close()
		}
		return errors.New("readme missing")
	}))
}

func TestUnknownPresetRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := afero.NewMemMapFs()
	svc, v, original := setup(t, fs, Options{})

	res := svc.SetDisabledList(ctx, bundlePath, []string{"Z.setting"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "Z.setting")

	err := v.SetDisabled(ctx, bundlePath, []string{"Z.setting"})
	require.ErrorIs(t, err, ErrPresetNotFound)
	assert.Equal(t, sha256.Sum256(original), digest(t, fs, bundlePath))
}

func TestDeletePresetsRewritesVault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := afero.NewMemMapFs()
	svc, v, original := setup(t, fs, Options{})

	require.True(t, svc.SetDisabledList(ctx, bundlePath, []string{"C.setting", "E.setting"}).OK)
	res := svc.DeletePresets(ctx, bundlePath, []string{"C.setting"})
	require.True(t, res.OK, res.Message)

	vp, err := v.VaultPath(bundlePath)
	require.NoError(t, err)
	assert.NotEqual(t, sha256.Sum256(original), digest(t, fs, vp))
	assert.NotContains(t, entryNames(t, fs, vp), "C.setting")
	assert.NotContains(t, entryNames(t, fs, vp), "C.png")

	listing := svc.ListPresets(ctx, bundlePath)
	assert.Equal(t, []string{"A.setting", "B.setting", "D.setting"}, activeNames(listing))
	assert.Equal(t, []string{"E.setting"}, listing.Disabled)

	assert.False(t, svc.DeletePresets(ctx, bundlePath, nil).OK)
}

func TestDeletePack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := afero.NewMemMapFs()
	svc, v, _ := setup(t, fs, Options{})

	require.True(t, svc.SetDisabledList(ctx, bundlePath, []string{"A.setting"}).OK)
	vp, err := v.VaultPath(bundlePath)
	require.NoError(t, err)

	res := svc.DeletePack(ctx, bundlePath)
	require.True(t, res.OK, res.Message)
	for _, p := range []string{bundlePath, vp} {
		exists, err := afero.Exists(fs, p)
		require.NoError(t, err)
		assert.False(t, exists, p)
	}
	disabled, err := v.Disabled(ctx, bundlePath)
	require.NoError(t, err)
	assert.Empty(t, disabled)
}

// lockedFs refuses renames onto target and the next busy writes to it.
type lockedFs struct {
	afero.Fs
	target string
	mu     sync.Mutex
	busy   int
}

var errInUse = errors.New("file in use")

func (l *lockedFs) Rename(oldname, newname string) error {
	if newname == l.target {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errInUse}
	}
	return l.Fs.Rename(oldname, newname)
}

func (l *lockedFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if name == l.target && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.busy > 0 {
			l.busy--
			return nil, &os.PathError{Op: "open", Path: name, Err: errInUse}
		}
	}
	return l.Fs.OpenFile(name, flag, perm)
}

func TestReplaceRetriesWhileLocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		busy     int
		attempts int
		wantErr  bool
	}{
		{name: "rename fails, copy succeeds", busy: 0, attempts: 3},
		{name: "transient lock", busy: 2, attempts: 3},
		{name: "lock outlives retries", busy: 10, attempts: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, logs := testutil.NewTestContext(t)
			fs := &lockedFs{Fs: afero.NewMemMapFs(), target: bundlePath}
			svc, _, original := setup(t, fs, Options{Attempts: tt.attempts, Backoff: time.Millisecond})
			fs.busy = tt.busy

			res := svc.SetDisabledList(ctx, bundlePath, []string{"A.setting"})
			exists, err := afero.Exists(fs, bundlePath+tempSuffix)
			require.NoError(t, err)
			assert.False(t, exists)

			if tt.wantErr {
				assert.False(t, res.OK)
				assert.Contains(t, res.Message, "another process")
				assert.Equal(t, sha256.Sum256(original), digest(t, fs, bundlePath))
				assert.Contains(t, logs(), `"attempt":3`)
				return
			}
			require.True(t, res.OK, res.Message)
			assert.NotContains(t, entryNames(t, fs, bundlePath), "A.setting")
			if tt.busy > 0 {
				assert.Contains(t, logs(), "bundle replace failed")
			}
		})
	}
}

func TestReplaceHonoursCancellation(t *testing.T) {
	t.Parallel()

	fs := &lockedFs{Fs: afero.NewMemMapFs(), target: bundlePath}
	_, v, _ := setup(t, fs, Options{Attempts: 5, Backoff: time.Hour})
	fs.busy = 100

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := v.SetDisabled(ctx, bundlePath, []string{"A.setting"})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrBundleLocked)
}

func TestConcurrentTogglesSerialize(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, bundlePath, fiveBundle(t), 0o644))
	m, err := database.NewManager(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = m.Close() }()
	v := New(fs, vaultDir, NewStore(m.DB()), Options{})

	var wg sync.WaitGroup
	for _, name := range presetNames[:4] {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for range 2 {
				_, err := v.Toggle(ctx, bundlePath, name)
				assert.NoError(t, err)
			}
		}(name)
	}
	wg.Wait()

	disabled, err := v.Disabled(ctx, bundlePath)
	require.NoError(t, err)
	assert.Empty(t, disabled)
	assert.Len(t, entryNames(t, fs, bundlePath), 11)
}

func TestSkipSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "empty", input: nil, want: nil},
		{name: "preset and thumbnail", input: []string{"Glow.setting"}, want: []string{"Glow.png", "Glow.setting"}},
		{name: "nested", input: []string{"Fx/Blur.setting"}, want: []string{"Fx/Blur.png", "Fx/Blur.setting"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for k := range SkipSet(tt.input) {
				got = append(got, k)
			}
			slices.Sort(got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalPath(t *testing.T) {
	t.Parallel()

	a, err := CanonicalPath("/packs/sub/../glow.zip")
	require.NoError(t, err)
	b, err := CanonicalPath("/packs/./glow.zip")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, Hash(a), Hash(b))
	assert.Len(t, Hash(a), 64)

	rel, err := CanonicalPath("glow.zip")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(filepath.FromSlash(rel)))
}

func TestExportBundle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := afero.NewMemMapFs()
	for name, body := range map[string]string{
		"/cat/Glow.setting": "{}",
		"/cat/Glow.png":     "png",
		"/cat/Halo.setting": "{}",
		"/cat/notes.txt":    "x",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	svc := NewService(newTestVault(t, fs, Options{}))

	res := svc.ExportBundle(ctx, "/cat/", nil)
	require.True(t, res.OK, res.Message)
	assert.Contains(t, res.Message, "/cat.zip")
	assert.Equal(t, []string{"Glow.setting", "Glow.png", "Halo.setting"}, entryNames(t, fs, "/cat.zip"))

	res = svc.ExportBundle(ctx, "/cat", []string{"Halo.setting"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, []string{"Halo.setting"}, entryNames(t, fs, "/cat.zip"))

	res = svc.ExportBundle(ctx, "/cat", []string{"Missing.setting"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "Missing.setting")
}
