// Package vault keeps an untouched backup of every preset bundle it touches
// and rebuilds the user-facing bundle from that backup, leaving out the
// presets the user has disabled.
package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/wizzomafizzo/setdeck/internal/constants"
	"github.com/wizzomafizzo/setdeck/internal/logging"
)

var (
	// ErrBundleLocked means the active bundle could not be replaced after
	// every retry.
	ErrBundleLocked = errors.New("bundle is locked by another process, close the host application and try again")

	// ErrPresetNotFound means a named preset is not in the bundle.
	ErrPresetNotFound = errors.New("preset not found in bundle")
)

const (
	defaultAttempts = 5
	defaultBackoff  = 100 * time.Millisecond
	tempSuffix      = ".tmp"
)

// Options tunes the atomic replace retry loop.
type Options struct {
	Attempts int
	Backoff  time.Duration
}

// Preset is one .setting entry of a bundle.
type Preset struct {
	Name     string
	Size     uint64
	Modified time.Time
	Disabled bool
}

// Vault manages backups under dir and the disabled lists in store.
type Vault struct {
	fs       afero.Fs
	dir      string
	store    *Store
	attempts int
	backoff  time.Duration
	locks    sync.Map
}

func New(fs afero.Fs, dir string, store *Store, opts Options) *Vault {
	v := &Vault{
		fs:       fs,
		dir:      dir,
		store:    store,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
	}
	if v.attempts < 1 {
		v.attempts = defaultAttempts
	}
	if v.backoff <= 0 {
		v.backoff = defaultBackoff
	}
	return v
}

// CanonicalPath is the absolute, cleaned, slash-separated form of path.
// Case is folded on platforms whose filesystems usually ignore it.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	canonical := filepath.ToSlash(filepath.Clean(abs))
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		canonical = strings.ToLower(canonical)
	}
	return canonical, nil
}

// Hash keys a bundle by its location, not its content.
func Hash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// SkipSet is the archive entries left out for the given preset names:
// each preset and its thumbnail.
func SkipSet(names []string) map[string]bool {
	skip := make(map[string]bool, len(names)*2)
	for _, n := range names {
		skip[n] = true
		skip[strings.TrimSuffix(n, constants.SettingExt)+constants.ThumbnailExt] = true
	}
	return skip
}

type bundle struct {
	path      string
	canonical string
	hash      string
	vaultPath string
}

func (v *Vault) resolve(path string) (bundle, error) {
	canonical, err := CanonicalPath(path)
	if err != nil {
		return bundle{}, err
	}
	hash := Hash(canonical)
	return bundle{
		path:      path,
		canonical: canonical,
		hash:      hash,
		vaultPath: filepath.Join(v.dir, hash+constants.BundleExt),
	}, nil
}

// lock serializes rebuilds of one bundle.
func (v *Vault) lock(b bundle) func() {
	m, _ := v.locks.LoadOrStore(b.hash, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// VaultPath returns where the backup of path lives.
func (v *Vault) VaultPath(path string) (string, error) {
	b, err := v.resolve(path)
	if err != nil {
		return "", err
	}
	return b.vaultPath, nil
}

// ensure copies the bundle into the vault verbatim unless a backup exists.
func (v *Vault) ensure(ctx context.Context, b bundle) error {
	exists, err := afero.Exists(v.fs, b.vaultPath)
	if err != nil {
		return fmt.Errorf("failed to check vault: %w", err)
	}
	if exists {
		return nil
	}
	if err := v.fs.MkdirAll(v.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}
	tmp := b.vaultPath + tempSuffix
	if err := copyFile(v.fs, b.path, tmp); err != nil {
		_ = v.fs.Remove(tmp)
		return fmt.Errorf("failed to back up %s: %w", b.path, err)
	}
	if err := v.fs.Rename(tmp, b.vaultPath); err != nil {
		_ = v.fs.Remove(tmp)
		return fmt.Errorf("failed to store backup of %s: %w", b.path, err)
	}
	logging.Get(ctx).Info().Str("bundle", b.path).Str("vault", b.vaultPath).Msg("backed up bundle")
	return nil
}

// Presets lists the .setting entries of the backup, flagging disabled ones.
func (v *Vault) Presets(ctx context.Context, path string) ([]Preset, error) {
	b, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	unlock := v.lock(b)
	defer unlock()

	if err := v.ensure(ctx, b); err != nil {
		return nil, err
	}
	disabled, err := v.store.Disabled(ctx, b.hash)
	if err != nil {
		return nil, err
	}
	return v.presets(b, disabled)
}

func (v *Vault) presets(b bundle, disabled []string) ([]Preset, error) {
	var out []Preset
	err := readArchive(v.fs, b.vaultPath, func(r *zip.Reader) error {
		for _, f := range r.File {
			if !strings.HasSuffix(strings.ToLower(f.Name), constants.SettingExt) {
				continue
			}
			out = append(out, Preset{
				Name:     f.Name,
				Size:     f.UncompressedSize64,
				Modified: f.Modified,
				Disabled: slices.Contains(disabled, f.Name),
			})
		}
		return nil
	})
	return out, err
}

// Disabled returns the stored disabled list of path.
func (v *Vault) Disabled(ctx context.Context, path string) ([]string, error) {
	b, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	return v.store.Disabled(ctx, b.hash)
}

// SetDisabled stores names as the full disabled list of path and rebuilds
// the active bundle from the backup.
func (v *Vault) SetDisabled(ctx context.Context, path string, names []string) error {
	b, err := v.resolve(path)
	if err != nil {
		return err
	}
	unlock := v.lock(b)
	defer unlock()

	if err := v.ensure(ctx, b); err != nil {
		return err
	}
	return v.setDisabled(ctx, b, names)
}

func (v *Vault) setDisabled(ctx context.Context, b bundle, names []string) error {
	if err := v.checkNames(b, names); err != nil {
		return err
	}
	names = slices.Compact(slices.Sorted(slices.Values(names)))
	if err := v.rebuild(ctx, b.vaultPath, b.path, names); err != nil {
		return err
	}
	return v.store.SetDisabled(ctx, b.hash, b.canonical, names)
}

// Toggle flips one preset between enabled and disabled. It reports whether
// the preset is now disabled.
func (v *Vault) Toggle(ctx context.Context, path, name string) (bool, error) {
	b, err := v.resolve(path)
	if err != nil {
		return false, err
	}
	unlock := v.lock(b)
	defer unlock()

	if err := v.ensure(ctx, b); err != nil {
		return false, err
	}
	current, err := v.store.Disabled(ctx, b.hash)
	if err != nil {
		return false, err
	}
	disabled := !slices.Contains(current, name)
	if disabled {
		current = append(current, name)
	} else {
		current = slices.DeleteFunc(current, func(n string) bool { return n == name })
	}
	if err := v.setDisabled(ctx, b, current); err != nil {
		return false, err
	}
	return disabled, nil
}

// DeletePresets removes presets for good: the backup is rewritten without
// them, then the active bundle is rebuilt.
func (v *Vault) DeletePresets(ctx context.Context, path string, names []string) error {
	b, err := v.resolve(path)
	if err != nil {
		return err
	}
	unlock := v.lock(b)
	defer unlock()

	if err := v.ensure(ctx, b); err != nil {
		return err
	}
	if err := v.checkNames(b, names); err != nil {
		return err
	}
	if err := v.rebuild(ctx, b.vaultPath, b.vaultPath, names); err != nil {
		return err
	}
	disabled, err := v.store.Disabled(ctx, b.hash)
	if err != nil {
		return err
	}
	disabled = slices.DeleteFunc(disabled, func(n string) bool { return slices.Contains(names, n) })
	return v.setDisabled(ctx, b, disabled)
}

// DeletePack removes the active bundle, its backup and its disabled list.
func (v *Vault) DeletePack(ctx context.Context, path string) error {
	b, err := v.resolve(path)
	if err != nil {
		return err
	}
	unlock := v.lock(b)
	defer unlock()

	for _, p := range []string{b.path, b.vaultPath} {
		if err := v.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	if err := v.store.Forget(ctx, b.hash); err != nil {
		return err
	}
	logging.Get(ctx).Info().Str("bundle", b.path).Msg("deleted bundle")
	return nil
}

func (v *Vault) checkNames(b bundle, names []string) error {
	all, err := v.presets(b, nil)
	if err != nil {
		return err
	}
	for _, n := range names {
		if !slices.ContainsFunc(all, func(p Preset) bool { return p.Name == n }) {
			return fmt.Errorf("%w: %s", ErrPresetNotFound, n)
		}
	}
	return nil
}

// rebuild writes every entry of src except the skip set of names into a
// fresh archive and atomically replaces dst with it.
func (v *Vault) rebuild(ctx context.Context, src, dst string, names []string) error {
	skip := SkipSet(names)
	tmp := dst + tempSuffix
	err := readArchive(v.fs, src, func(r *zip.Reader) error {
		return writeArchive(v.fs, tmp, func(w *zip.Writer) error {
			for _, f := range r.File {
				if skip[f.Name] {
					continue
				}
				if err := copyEntry(w, f); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		_ = v.fs.Remove(tmp)
		return fmt.Errorf("failed to rebuild %s: %w", dst, err)
	}
	logging.Get(ctx).Debug().Str("bundle", dst).Int("skipped", len(skip)).Msg("rebuilt bundle")
	return v.replace(ctx, tmp, dst)
}

func readArchive(fs afero.Fs, path string, fn func(*zip.Reader) error) error {
	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("failed to read archive %s: %w", path, err)
	}
	return fn(r)
}

func writeArchive(fs afero.Fs, path string, fn func(*zip.Writer) error) error {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := zip.NewWriter(f)
	if err := fn(w); err != nil {
		_ = w.Close()
		_ = f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to finish archive %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func copyEntry(w *zip.Writer, f *zip.File) error {
	hdr := f.FileHeader
	out, err := w.CreateHeader(&hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", f.Name, err)
	}
	in, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	defer func() { _ = in.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", f.Name, err)
	}
	return nil
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return nil
}
