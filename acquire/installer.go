package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/glasspane/glasspane/filesystem"
	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/spf13/afero"
)

// Progress receives the overall install fraction in [0, 1] and a short stage description.
type Progress func(fraction float64, message string)

// Verifier proves that a library can be loaded with all required symbols.
type Verifier interface {
	Verify(path string) error
}

// Unloader is the live library handle that has to be released before its files are removed.
type Unloader interface {
	Loaded() bool
	Unload() error
}

// Options wires an Installer. Zero fields get platform defaults.
type Options struct {
	Fs         afero.Fs
	Downloader Downloader
	Extractor  Extractor
	Quarantine Quarantine
	Relinker   Relinker
	Verifier   Verifier
	Library    Unloader
	// Platform overrides the "GOOS/GOARCH" archive key.
	Platform string
	// MinDownloadSize rejects archives smaller than this many bytes.
	MinDownloadSize int64
}

// Installer performs the install and uninstall workflows of one plugin backend.
type Installer struct {
	installation *Installation
	opts         Options
}

func NewInstaller(installation *Installation, opts Options) *Installer {
	runner := ExecRunner{}
	if opts.Fs == nil {
		opts.Fs = installation.fs
	}
	if opts.Downloader == nil {
		opts.Downloader = HTTPDownloader{}
	}
	if opts.Extractor == nil {
		opts.Extractor = CommandExtractor{Runner: runner}
	}
	if opts.Quarantine == nil {
		opts.Quarantine = XattrQuarantine{Runner: runner}
	}
	if opts.Relinker == nil {
		opts.Relinker = DefaultRelinker(opts.Fs, runner)
	}
	if opts.Platform == "" {
		opts.Platform = Platform()
	}
	return &Installer{installation: installation, opts: opts}
}

func (i *Installer) Installation() *Installation {
	return i.installation
}

// Start runs Install on a background goroutine. Progress and completion are delivered on loop.
func (i *Installer) Start(ctx context.Context, loop mainloop.Loop, progress Progress, done func(mo.Result[*Receipt])) {
	go func() {
		receipt, err := i.Install(ctx, func(fraction float64, message string) {
			if progress != nil {
				loop.Post(func() { progress(fraction, message) })
			}
		})
		loop.Post(func() {
			if err != nil {
				done(mo.Err[*Receipt](err))
				return
			}
			done(mo.Ok(receipt))
		})
	}()
}

// Install downloads, extracts, relinks and verifies the bundle. On any failure the
// backend's cache directory is removed, so a failed install leaves nothing behind.
func (i *Installer) Install(ctx context.Context, progress Progress) (*Receipt, error) {
	if progress == nil {
		progress = func(float64, string) {}
	}

	manifest := i.installation.manifest
	logger := log.With(log.Fields{"backend": manifest.Backend.Name(), "version": manifest.Version})
	logger.Infof("installing plugin")

	receipt, err := i.install(ctx, progress)
	if err != nil {
		logger.Errorf("install failed: %v", err)
		i.rollback()
		return nil, err
	}

	logger.Infof("installed to %s", i.installation.Directory())
	progress(1, "Installed")
	return receipt, nil
}

func (i *Installer) install(ctx context.Context, progress Progress) (*Receipt, error) {
	fs := i.opts.Fs
	manifest := i.installation.manifest
	dir := i.installation.Directory()

	archive, err := manifest.ArchiveFor(i.opts.Platform)
	if err != nil {
		return nil, err
	}

	if err := fs.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}

	scratch := filepath.Join(dir, scratchPrefix+uuid.NewString())
	if err := fs.MkdirAll(scratch, os.ModePerm); err != nil {
		return nil, err
	}

	coreShare := 0.6
	if manifest.Assets != nil {
		coreShare = 0.35
	}

	progress(0, "Downloading "+manifest.Backend.String())
	archivePath, digest, err := i.fetch(ctx, archive, filepath.Join(scratch, "core"), span(progress, 0, coreShare, "Downloading "+manifest.Backend.String()))
	if err != nil {
		return nil, err
	}

	progress(coreShare, "Extracting")
	extracted := filepath.Join(scratch, "core.d")
	if err := i.extract(ctx, archivePath, extracted); err != nil {
		return nil, err
	}

	root, err := i.findBundle(extracted)
	if err != nil {
		return nil, err
	}
	if err := filesystem.Move(fs, root, i.installation.BundleDirectory()); err != nil {
		return nil, err
	}
	i.clearQuarantine(ctx, i.installation.BundleDirectory())

	var assetsSource string
	if manifest.Assets != nil {
		assetsSource, err = i.installAssets(ctx, scratch, progress, coreShare)
		if err != nil {
			return nil, err
		}
	}

	progress(0.8, "Relinking")
	if err := i.opts.Relinker.Relink(ctx, i.installation.BundleDirectory()); err != nil {
		return nil, fmt.Errorf("relink %s: %w", manifest.Backend, err)
	}

	if err := fs.RemoveAll(scratch); err != nil {
		return nil, err
	}

	progress(0.9, "Verifying")
	i.installation.Invalidate()
	loc, ok := i.installation.locatePrivate()
	if !ok {
		if i.installation.BundlePresent() {
			return nil, ErrPluginAssetsNotFound
		}
		return nil, ErrBundleNotFound
	}
	if i.opts.Verifier != nil {
		if err := i.opts.Verifier.Verify(loc.Library); err != nil {
			return nil, &VerificationError{Detail: err.Error()}
		}
	}

	receipt := &Receipt{
		Backend:     manifest.Backend.Name(),
		Version:     manifest.Version,
		Platform:    i.opts.Platform,
		Source:      archive.URL,
		SHA256:      digest,
		Assets:      assetsSource,
		InstalledAt: time.Now(),
	}
	if err := writeReceipt(fs, dir, receipt); err != nil {
		return nil, err
	}

	i.installation.Invalidate()
	return receipt, nil
}

func (i *Installer) installAssets(ctx context.Context, scratch string, progress Progress, from float64) (string, error) {
	manifest := i.installation.manifest
	archive, err := manifest.AssetsFor(i.opts.Platform)
	if err != nil {
		return "", err
	}

	const to = 0.7
	path, _, err := i.fetch(ctx, archive, filepath.Join(scratch, "assets"), span(progress, from, to, "Downloading assets"))
	if err != nil {
		return "", err
	}

	progress(to, "Extracting assets")
	extracted := filepath.Join(scratch, "assets.d")
	if err := i.extract(ctx, path, extracted); err != nil {
		return "", err
	}

	found, ok := findDir(i.opts.Fs, extracted, manifest.Assets.SearchName)
	if !ok {
		return "", ErrPluginAssetsNotFound
	}

	dest := i.installation.AssetsDirectory()
	if err := i.opts.Fs.RemoveAll(dest); err != nil {
		return "", err
	}
	if err := i.opts.Fs.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", err
	}
	if err := filesystem.Move(i.opts.Fs, found, dest); err != nil {
		return "", err
	}
	i.clearQuarantine(ctx, dest)
	return archive.URL, nil
}

// fetch downloads into base plus the URL's archive extension and returns the file's SHA-256.
func (i *Installer) fetch(ctx context.Context, archive Archive, base string, progress func(done, total int64)) (string, string, error) {
	path := base + archiveExt(archive.URL)
	f, err := i.opts.Fs.Create(path)
	if err != nil {
		return "", "", err
	}

	hash := sha256.New()
	n, err := i.opts.Downloader.Download(ctx, archive.URL, io.MultiWriter(f, hash), progress)
	closeErr := f.Close()
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		if !errors.Is(err, ErrDownloadFailed) {
			err = fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		}
		return "", "", err
	}
	if closeErr != nil {
		return "", "", closeErr
	}

	if floor := i.minDownloadSize(); n < floor {
		return "", "", fmt.Errorf("%w: %s is only %d bytes", ErrDownloadFailed, archive.URL, n)
	}

	digest := hex.EncodeToString(hash.Sum(nil))
	if archive.SHA256 != "" && archive.SHA256 != digest {
		return "", "", fmt.Errorf("%w: checksum mismatch for %s", ErrDownloadFailed, archive.URL)
	}
	return path, digest, nil
}

func (i *Installer) minDownloadSize() int64 {
	if m := i.installation.manifest.MinDownloadSize; m > 0 {
		return m
	}
	return i.opts.MinDownloadSize
}

func (i *Installer) extract(ctx context.Context, archive, dest string) error {
	if err := i.opts.Fs.MkdirAll(dest, os.ModePerm); err != nil {
		return err
	}
	if err := i.opts.Extractor.Extract(ctx, archive, dest); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, ErrExtractFailed) {
			err = &ExtractError{Archive: archive, Detail: err.Error()}
		}
		return err
	}
	return nil
}

// findBundle looks for the bundle root by its fixed name first, then by the library's file name.
func (i *Installer) findBundle(extracted string) (string, error) {
	manifest := i.installation.manifest
	fs := i.opts.Fs

	direct := filepath.Join(extracted, manifest.Bundle)
	if isDir, _ := afero.IsDir(fs, direct); isDir {
		return direct, nil
	}

	if found, ok := findDir(fs, extracted, manifest.Bundle); ok {
		return found, nil
	}

	for _, name := range manifest.LibraryNames {
		lib, ok := findFile(fs, extracted, name)
		if !ok {
			continue
		}
		for _, rel := range manifest.LibraryPaths {
			if filepath.Base(rel) != name {
				continue
			}
			// climb out of the relative path so the library lands where LibraryPaths expects it
			root := filepath.Dir(lib)
			for d := filepath.Dir(rel); d != "."; d = filepath.Dir(d) {
				root = filepath.Dir(root)
			}
			return root, nil
		}
	}

	return "", ErrBundleNotFound
}

func (i *Installer) clearQuarantine(ctx context.Context, path string) {
	if err := i.opts.Quarantine.Clear(ctx, path); err != nil {
		log.Warnf("clear quarantine on %s: %s", path, stderrOf(err))
	}
}

func (i *Installer) rollback() {
	if err := i.opts.Fs.RemoveAll(i.installation.Directory()); err != nil {
		log.Errorf("rollback %s: %v", i.installation.Directory(), err)
	}
	i.installation.Invalidate()
}

// Uninstall releases the loaded library and removes the backend's cache directory.
// Uninstalling twice is not an error.
func (i *Installer) Uninstall() error {
	if lib := i.opts.Library; lib != nil && lib.Loaded() {
		if err := lib.Unload(); err != nil {
			log.Warnf("unload before uninstall: %v", err)
		}
	}

	err := i.opts.Fs.RemoveAll(i.installation.Directory())
	i.installation.Invalidate()
	if err != nil {
		return err
	}

	log.With(log.Fields{"backend": i.installation.manifest.Backend.Name()}).Infof("uninstalled")
	return nil
}

func span(progress Progress, from, to float64, message string) func(done, total int64) {
	return func(done, total int64) {
		if total <= 0 {
			return
		}
		f := float64(done) / float64(total)
		if f > 1 {
			f = 1
		}
		progress(from+(to-from)*f, message)
	}
}

func findDir(fs afero.Fs, root, name string) (string, bool) {
	return find(fs, root, func(info os.FileInfo) bool { return info.IsDir() && info.Name() == name })
}

func findFile(fs afero.Fs, root, name string) (string, bool) {
	return find(fs, root, func(info os.FileInfo) bool { return !info.IsDir() && info.Name() == name })
}

var errFound = errors.New("found")

func find(fs afero.Fs, root string, match func(os.FileInfo) bool) (string, bool) {
	var result string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != root && match(info) {
			result = path
			return errFound
		}
		return nil
	})
	return result, errors.Is(err, errFound)
}
