// Package archive packages directory trees into zip files: the
// production theme archive and dated backups of the build directory.
package archive

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// BackupName formats t the way backup archives are named: dd.mm.yyyy.
func BackupName(t time.Time) string {
	return t.Format("02.01.2006")
}

// Archiver writes zip archives through an afero.Fs.
type Archiver struct {
	fs     afero.Fs
	now    func() time.Time
	logger logging.Logger
}

// New creates an archiver on fs.
func New(fs afero.Fs, logger logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Archiver{
		fs:     fs,
		now:    time.Now,
		logger: logger.WithComponent("archive"),
	}
}

// Zip archives every file below srcDir into dest. Entry names are relative
// to srcDir. It returns the number of files written.
func (a *Archiver) Zip(ctx context.Context, srcDir, dest string) (int, error) {
	files, err := a.list(srcDir)
	if err != nil {
		return 0, err
	}

	if err := a.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, errors.NewIOError("ARCHIVE_FAILED", "cannot create archive directory", err).WithPath(filepath.Dir(dest))
	}
	out, err := a.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, errors.NewIOError("ARCHIVE_FAILED", "cannot create archive", err).WithPath(dest)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, name := range files {
		if err := a.add(zw, srcDir, name); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		return 0, errors.NewIOError("ARCHIVE_FAILED", "cannot finish archive", err).WithPath(dest)
	}
	if err := out.Close(); err != nil {
		return 0, errors.NewIOError("ARCHIVE_FAILED", "cannot flush archive", err).WithPath(dest)
	}

	a.logger.Info(ctx, "Archive written", "path", dest, "files", len(files))
	return len(files), nil
}

func (a *Archiver) list(srcDir string) ([]string, error) {
	var files []string
	err := afero.Walk(a.fs, srcDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewIOError("ARCHIVE_FAILED", "cannot read directory", err).WithPath(srcDir)
	}
	sort.Strings(files)
	return files, nil
}

func (a *Archiver) add(zw *zip.Writer, srcDir, name string) error {
	info, err := a.fs.Stat(name)
	if err != nil {
		return errors.NewIOError("ARCHIVE_FAILED", "cannot stat file", err).WithPath(name)
	}
	rel, err := filepath.Rel(srcDir, name)
	if err != nil {
		return errors.NewInternalError("ARCHIVE_FAILED", "cannot relativize path", err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.NewIOError("ARCHIVE_FAILED", "cannot build zip header", err).WithPath(name)
	}
	header.Name = path.Clean(filepath.ToSlash(rel))
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return errors.NewIOError("ARCHIVE_FAILED", "cannot add zip entry", err).WithPath(name)
	}

	in, err := a.fs.Open(name)
	if err != nil {
		return errors.NewIOError("ARCHIVE_FAILED", "cannot open file", err).WithPath(name)
	}
	defer in.Close()

	if _, err := io.Copy(w, in); err != nil {
		return errors.NewIOError("ARCHIVE_FAILED", "cannot compress file", err).WithPath(name)
	}
	return nil
}

// Backup zips buildDir into backupDir/<dd.mm.yyyy>.zip and returns the
// archive path. A missing build directory is a missing prerequisite.
func (a *Archiver) Backup(ctx context.Context, buildDir, backupDir string) (string, error) {
	exists, err := afero.DirExists(a.fs, buildDir)
	if err != nil {
		return "", errors.NewIOError("BACKUP_FAILED", "cannot inspect build directory", err).WithPath(buildDir)
	}
	if !exists {
		return "", errors.NewMissingPrerequisiteError("BUILD_NOT_FOUND",
			"you need to build the project first", "pressify env:start").WithPath(buildDir)
	}

	dest := filepath.Join(backupDir, BackupName(a.now())+".zip")
	if _, err := a.Zip(ctx, buildDir, dest); err != nil {
		return "", err
	}
	return dest, nil
}
