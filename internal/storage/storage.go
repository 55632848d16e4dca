// Package storage persists uploaded CV files.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "jobtracker/internal/errors"
)

// MaxCVSize is the largest accepted CV upload.
const MaxCVSize = 10 * 1024 * 1024

// PublicPrefix is the URL path stored files are served under.
const PublicPrefix = "/uploads/"

// AllowedCVExtensions lists the accepted CV file types.
var AllowedCVExtensions = []string{".pdf", ".doc", ".docx"}

// FileStore saves, serves and removes stored files. Save returns the public
// path recorded on the application; Delete accepts that same path.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, publicPath string) error
}

// ValidateCV checks an upload against the size cap and extension whitelist
// and returns the normalized extension.
func ValidateCV(filename string, size int64) (string, error) {
	if filename == "" || size <= 0 {
		return "", fmt.Errorf("%w: no file was uploaded", apperrors.ErrInvalidFile)
	}
	if size > MaxCVSize {
		return "", fmt.Errorf("%w: file size exceeds the limit of %dMB", apperrors.ErrInvalidFile, MaxCVSize/1024/1024)
	}
	ext := strings.ToLower(path.Ext(filename))
	for _, allowed := range AllowedCVExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: file type %q is not allowed, allowed types: %s",
		apperrors.ErrInvalidFile, ext, strings.Join(AllowedCVExtensions, ", "))
}

// ticksAtUnixEpoch is the number of 100ns intervals between 0001-01-01 and 1970-01-01.
const ticksAtUnixEpoch = 621355968000000000

// Ticks returns t as 100-nanosecond intervals since 0001-01-01 UTC.
func Ticks(t time.Time) int64 {
	return t.UTC().UnixNano()/100 + ticksAtUnixEpoch
}

// CVFileName builds the stored name {userId}_{ticks}{ext}.
func CVFileName(userID uuid.UUID, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%d%s", userID, Ticks(now), ext)
}

// NameFromPublicPath strips PublicPrefix and rejects anything that is not a
// plain file name.
func NameFromPublicPath(p string) (string, bool) {
	name := strings.TrimPrefix(p, PublicPrefix)
	if !validName(name) {
		return "", false
	}
	return name, true
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}

// ContentType guesses a MIME type from a CV extension.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}
