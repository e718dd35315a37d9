// Package storage keeps uploaded images on local disk under a public URL prefix.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BucketProducts = "products"
	BucketAvatars  = "avatars"
)

var ErrOutsideStore = errors.New("storage: url does not belong to the media store")

// Media stores files as <dir>/<bucket>/<owner>/<unixnano>-<uuid><ext> and
// exposes them under <urlPrefix>.
type Media struct {
	dir       string
	urlPrefix string
}

func NewMedia(dir, urlPrefix string) (*Media, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Media{dir: abs, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (m *Media) Dir() string { return m.dir }

// Put writes data and returns its public URL.
func (m *Media) Put(bucket, owner, ext string, data []byte) (string, error) {
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString(), ext)
	rel := path.Join(bucket, owner, name)
	full := filepath.Join(m.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return m.urlPrefix + "/" + rel, nil
}

// Remove deletes the file behind url. Unknown or missing files are not an error
// beyond ErrOutsideStore for foreign URLs.
func (m *Media) Remove(url string) error {
	if url == "" {
		return nil
	}
	rel, ok := strings.CutPrefix(url, m.urlPrefix+"/")
	if !ok {
		return ErrOutsideStore
	}
	clean := path.Clean(rel)
	if clean == "." || strings.HasPrefix(clean, "..") || path.IsAbs(clean) {
		return ErrOutsideStore
	}
	err := os.Remove(filepath.Join(m.dir, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
