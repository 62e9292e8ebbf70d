// Package materialize persists a post's media into a request-scoped
// temporary directory and packages the result: raw bytes for a single file,
// a zip archive for carousels. The temporary directory is removed on every
// exit path.
package materialize

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	igerrors "igresolver/pkg/errors"
	"igresolver/pkg/logger"
	"igresolver/pkg/media"
)

// mimeByExtension is the allow-list used as the media-type oracle. Files
// with other extensions are not media and are ignored by the scanner.
var mimeByExtension = map[string]string{
	".mp4":  "video/mp4",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Asset is the transient materialized result: either one media file's bytes
// or a zip of all of them. It lives only for the duration of one response.
type Asset struct {
	Bytes    []byte
	MIMEType string
	Filename string
}

// Downloader persists a post's media items into a directory.
type Downloader interface {
	DownloadAll(ctx context.Context, shortcode string, items []media.Descriptor, dir string) ([]string, error)
}

// Materializer downloads and packages post media.
type Materializer struct {
	pool    Downloader
	baseDir string
	logger  logger.Logger
}

// New creates a Materializer that scopes temporary directories under baseDir.
func New(pool Downloader, baseDir string, log logger.Logger) *Materializer {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Materializer{
		pool:    pool,
		baseDir: baseDir,
		logger:  log,
	}
}

// Materialize downloads all media of a post and returns a single-file asset
// or a zip archive. The uniquely-named temporary directory is private to
// this call and deleted before returning, whatever the outcome.
func (m *Materializer) Materialize(ctx context.Context, shortcode string, items []media.Descriptor) (*Asset, error) {
	root := filepath.Join(m.baseDir, "igresolver-"+uuid.NewString())
	mediaDir := filepath.Join(root, "media")
	if err := os.MkdirAll(mediaDir, 0700); err != nil {
		return nil, igerrors.Wrap(igerrors.TypeUpstream, "failed to create temporary directory", err)
	}
	defer func() {
		if err := os.RemoveAll(root); err != nil {
			m.logger.ErrorWithFields("failed to remove temporary directory", map[string]interface{}{
				"path":  root,
				"error": err.Error(),
			})
		}
	}()

	if _, err := m.pool.DownloadAll(ctx, shortcode, items, mediaDir); err != nil {
		return nil, err
	}

	files, err := scanMediaFiles(mediaDir)
	if err != nil {
		return nil, igerrors.Wrap(igerrors.TypeUpstream, "failed to scan downloaded media", err)
	}

	switch len(files) {
	case 0:
		return nil, igerrors.Newf(igerrors.TypeNoMedia, "no media found for post %s", shortcode)
	case 1:
		data, err := os.ReadFile(files[0])
		if err != nil {
			return nil, igerrors.Wrap(igerrors.TypeUpstream, "failed to read downloaded media", err)
		}
		return &Asset{
			Bytes:    data,
			MIMEType: mimeForFile(files[0]),
			Filename: filepath.Base(files[0]),
		}, nil
	default:
		archive, err := zipDirectory(mediaDir)
		if err != nil {
			return nil, igerrors.Wrap(igerrors.TypeUpstream, "failed to archive media", err)
		}
		return &Asset{
			Bytes:    archive,
			MIMEType: "application/zip",
			Filename: shortcode + ".zip",
		}, nil
	}
}

// scanMediaFiles lists the allow-listed media files in dir, sorted by name.
func scanMediaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := mimeByExtension[ext]; ok {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// mimeForFile maps a filename to its MIME type via the extension allow-list.
func mimeForFile(name string) string {
	if mime, ok := mimeByExtension[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// zipDirectory archives every file under dir into an in-memory zip.
func zipDirectory(dir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(w, file)
		return err
	})
	if err != nil {
		zw.Close()
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
