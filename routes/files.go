package routes

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mcjars/registry/apimiddleware"
	"github.com/mcjars/registry/apiresponse"
	"github.com/mcjars/registry/models"
)

// checksumsSuffix marks a request for a single file's digests rendered as
// text, rather than the file itself, matching the Rust source's
// ".CHECKSUMS.txt" convention.
const checksumsSuffix = ".CHECKSUMS.txt"

// splitChecksumsPath strips checksumsSuffix from the last path component
// only (never from an intermediate directory segment) and reports whether
// the suffix was present.
func splitChecksumsPath(path string) (string, bool) {
	idx := strings.LastIndex(path, "/")
	last := path[idx+1:]

	trimmed, ok := strings.CutSuffix(last, checksumsSuffix)
	if !ok {
		return path, false
	}

	return path[:idx+1] + trimmed, true
}

// ListFiles handles GET /api/files/*: the immediate children of a build's
// installed file tree, or — when the last path component is suffixed with
// ".CHECKSUMS.txt" — that single file's digests rendered one per line.
func (d *Deps) ListFiles(c echo.Context) (apiresponse.Response, error) {
	path := c.Param("*")

	if file, ok := splitChecksumsPath(path); ok {
		return d.renderChecksums(c, file)
	}

	files, err := models.FilesForRoot(c.Request().Context(), d.Pool.Read(), path)
	if err != nil {
		return apiresponse.Response{}, err
	}

	if data := apimiddleware.DataSlot(c); data != nil {
		data["type"] = "files"
		data["path"] = path
	}

	return apiresponse.JSON(files), nil
}

func (d *Deps) renderChecksums(c echo.Context, path string) (apiresponse.Response, error) {
	f, err := models.FileByPath(c.Request().Context(), d.Pool.Read(), path)
	if err != nil {
		return apiresponse.Response{}, err
	}
	if f == nil || f.IsDirectory {
		return apiresponse.Response{}, apiresponse.NotFound("file not found")
	}

	body := formatChecksums(f)

	if data := apimiddleware.DataSlot(c); data != nil {
		data["type"] = "checksums"
		data["path"] = path
	}

	return apiresponse.Response{
		Body:    body,
		Status:  http.StatusOK,
		Headers: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
	}, nil
}

// formatChecksums renders every digest files.rs's by_path handler emits,
// one seven-char-label line per algorithm.
func formatChecksums(f *models.File) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "md5    %s\n", hex.EncodeToString(f.MD5))
	fmt.Fprintf(&b, "sha1   %s\n", hex.EncodeToString(f.SHA1))
	fmt.Fprintf(&b, "sha224 %s\n", hex.EncodeToString(f.SHA224))
	fmt.Fprintf(&b, "sha256 %s\n", hex.EncodeToString(f.SHA256))
	fmt.Fprintf(&b, "sha384 %s\n", hex.EncodeToString(f.SHA384))
	fmt.Fprintf(&b, "sha512 %s\n", hex.EncodeToString(f.SHA512))
	return []byte(b.String())
}

// downloadContentType picks the binary content-type files.rs's download
// handler sets by file extension; everything that isn't a .jar is served
// as a .zip (the only two artifact shapes the registry stores).
func downloadContentType(name string) string {
	if strings.HasSuffix(name, ".jar") {
		return "application/java-archive"
	}
	return "application/zip"
}

// DownloadFile handles GET/HEAD /api/files/download/*: streams one file's
// bytes through the bounded on-disk cache (C3), falling back to the
// upstream artifact store on a miss. HEAD returns the same headers with
// no body and skips the cache fetch entirely.
func (d *Deps) DownloadFile(c echo.Context) error {
	path := c.Param("*")
	ctx := c.Request().Context()

	f, err := models.FileByPath(ctx, d.Pool.Read(), path)
	if err != nil {
		return err
	}
	if f == nil || f.IsDirectory {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	h := c.Response().Header()
	h.Set("Content-Type", downloadContentType(f.Name))
	h.Set("Content-Length", strconv.FormatInt(f.Size, 10))
	h.Set("ETag", hex.EncodeToString(f.SHA256))
	h.Set("Cache-Control", "public, max-age=604800")

	if c.Request().Method == http.MethodHead {
		c.Response().WriteHeader(http.StatusOK)
		return nil
	}

	rc, err := d.FileCache.Get(ctx, path, f.Size)
	if err != nil {
		return fmt.Errorf("open cached file %s: %w", path, err)
	}
	defer rc.Close()

	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), rc)
	return err
}
