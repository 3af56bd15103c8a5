package vault

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/wizzomafizzo/setdeck/internal/constants"
	"github.com/wizzomafizzo/setdeck/internal/logging"
)

// Result is what the archive layer reports back to its caller.
type Result struct {
	OK      bool
	Message string
}

// Listing is the outcome of ListPresets.
type Listing struct {
	Result
	Active   []Preset
	Disabled []string
}

// Service is the archive collaborator. Failures come back as messages.
type Service struct {
	vault *Vault
}

func NewService(v *Vault) *Service {
	return &Service{vault: v}
}

func succeeded(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

func failed(ctx context.Context, op string, err error) Result {
	logging.Get(ctx).Error().Err(err).Str("op", op).Msg("archive operation failed")
	msg := err.Error()
	if errors.Is(err, ErrBundleLocked) {
		msg = ErrBundleLocked.Error()
	}
	return Result{Message: fmt.Sprintf("%s failed: %s", op, msg)}
}

// ListPresets splits the presets of a bundle into active and disabled.
func (s *Service) ListPresets(ctx context.Context, path string) Listing {
	presets, err := s.vault.Presets(ctx, path)
	if err != nil {
		return Listing{Result: failed(ctx, "list", err)}
	}
	out := Listing{Result: succeeded("%d presets", len(presets))}
	for _, p := range presets {
		if p.Disabled {
			out.Disabled = append(out.Disabled, p.Name)
			continue
		}
		out.Active = append(out.Active, p)
	}
	return out
}

func (s *Service) Toggle(ctx context.Context, path, name string) Result {
	disabled, err := s.vault.Toggle(ctx, path, name)
	if err != nil {
		return failed(ctx, "toggle", err)
	}
	if disabled {
		return succeeded("disabled %s", name)
	}
	return succeeded("enabled %s", name)
}

func (s *Service) SetDisabledList(ctx context.Context, path string, names []string) Result {
	if err := s.vault.SetDisabled(ctx, path, names); err != nil {
		return failed(ctx, "disable", err)
	}
	return succeeded("%d presets disabled", len(names))
}

func (s *Service) DeletePack(ctx context.Context, path string) Result {
	if err := s.vault.DeletePack(ctx, path); err != nil {
		return failed(ctx, "delete pack", err)
	}
	return succeeded("deleted %s", filepath.Base(path))
}

func (s *Service) DeletePresets(ctx context.Context, path string, names []string) Result {
	if len(names) == 0 {
		return Result{Message: "delete failed: no presets named"}
	}
	if err := s.vault.DeletePresets(ctx, path, names); err != nil {
		return failed(ctx, "delete", err)
	}
	return succeeded("deleted %d presets", len(names))
}

// ExportBundle packs presets of categoryDir, with their thumbnails, into
// a bundle next to the directory. No names means every preset.
func (s *Service) ExportBundle(ctx context.Context, categoryDir string, names []string) Result {
	out, size, err := s.vault.Export(ctx, categoryDir, names)
	if err != nil {
		return failed(ctx, "export", err)
	}
	return succeeded("exported %s (%s)", out, humanize.Bytes(size))
}

// Export writes the bundle for categoryDir and returns its path and size.
func (v *Vault) Export(ctx context.Context, categoryDir string, names []string) (string, uint64, error) {
	categoryDir = filepath.Clean(categoryDir)
	infos, err := afero.ReadDir(v.fs, categoryDir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read %s: %w", categoryDir, err)
	}

	var available []string
	files := map[string]bool{}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		files[info.Name()] = true
		if strings.HasSuffix(strings.ToLower(info.Name()), constants.SettingExt) {
			available = append(available, info.Name())
		}
	}
	if len(names) == 0 {
		names = available
	}
	if len(names) == 0 {
		return "", 0, fmt.Errorf("no presets in %s", categoryDir)
	}
	for _, n := range names {
		if !slices.Contains(available, n) {
			return "", 0, fmt.Errorf("%w: %s", ErrPresetNotFound, n)
		}
	}

	out := categoryDir + constants.BundleExt
	err = writeArchive(v.fs, out, func(w *zip.Writer) error {
		for _, n := range names {
			entries := []string{n}
			if thumb := strings.TrimSuffix(n, constants.SettingExt) + constants.ThumbnailExt; files[thumb] {
				entries = append(entries, thumb)
			}
			for _, e := range entries {
				if err := addFile(v.fs, w, filepath.Join(categoryDir, e), e); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		_ = v.fs.Remove(out)
		return "", 0, fmt.Errorf("failed to export %s: %w", categoryDir, err)
	}

	info, err := v.fs.Stat(out)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat %s: %w", out, err)
	}
	logging.Get(ctx).Info().Str("bundle", out).Int("presets", len(names)).Msg("exported bundle")
	return out, uint64(info.Size()), nil
}

func addFile(fs afero.Fs, w *zip.Writer, path, name string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	out, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
