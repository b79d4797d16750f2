package stencil

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/container"
)

// Media is image data handed to image() by the caller.
type Media struct {
	Data     []byte
	MimeType string
}

// parseDataURI parses a data URI and returns the MIME type and decoded data
func parseDataURI(dataURI string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return "", nil, fmt.Errorf("invalid data URI format")
	}

	// data:[<mediatype>][;base64],<data>
	metadata, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("invalid data URI format")
	}
	if payload == "" {
		return "", nil, fmt.Errorf("no image data")
	}

	mimeType, isBase64 := strings.CutSuffix(metadata, ";base64")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", nil, fmt.Errorf("unsupported image type: %q", mimeType)
	}

	if !isBase64 {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("invalid data URI payload: %w", err)
		}
		return mimeType, []byte(data), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	return mimeType, data, nil
}

// getImageExtension returns the file extension for a given MIME type
func getImageExtension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/svg+xml":
		return ".svg"
	case "image/webp":
		return ".webp"
	case "image/tiff":
		return ".tif"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// loadMedia resolves an image() argument. Strings are data URIs or paths
// below dir. An explicit mimeType wins over detection.
func loadMedia(src interface{}, mimeType, dir string) (*Media, error) {
	var m Media
	switch v := src.(type) {
	case Media:
		m = v
	case *Media:
		m = *v
	case []byte:
		m.Data = v
	case string:
		if strings.HasPrefix(v, "data:") {
			mt, data, err := parseDataURI(v)
			if err != nil {
				return nil, err
			}
			m = Media{Data: data, MimeType: mt}
			break
		}
		path, err := mediaPath(dir, v)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		m = Media{Data: data, MimeType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))}
	default:
		return nil, fmt.Errorf("unsupported image source %T", src)
	}

	if len(m.Data) == 0 {
		return nil, fmt.Errorf("no image data")
	}
	if mimeType != "" {
		m.MimeType = mimeType
	}
	if i := strings.IndexByte(m.MimeType, ';'); i >= 0 {
		m.MimeType = strings.TrimSpace(m.MimeType[:i])
	}
	if m.MimeType == "" {
		m.MimeType = http.DetectContentType(m.Data)
	}
	return &m, nil
}

// mediaPath joins a template supplied path to dir, refusing paths that
// leave it.
func mediaPath(dir, name string) (string, error) {
	name = filepath.FromSlash(name)
	if dir == "" {
		return name, nil
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("image path %q is outside the media directory", name)
	}
	return filepath.Join(dir, name), nil
}

// mediaStore adds the images of one render to its output package. Media
// keys are padded sequence numbers following the highest numeric name
// already in the package, so existing entries are never replaced.
type mediaStore struct {
	pkg    *container.Package
	dir    string
	seq    int
	byHash map[[sha256.Size]byte]string
	hrefs  map[string]string
}

func newMediaStore(pkg *container.Package, dir string) *mediaStore {
	s := &mediaStore{
		pkg:    pkg,
		dir:    dir,
		byHash: make(map[[sha256.Size]byte]string),
		hrefs:  make(map[string]string),
	}
	for _, name := range pkg.ListMedia() {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if n, err := strconv.Atoi(base); err == nil && n > s.seq {
			s.seq = n
		}
	}
	return s
}

// Add stores m and returns its media key. The same bytes added twice share
// one entry.
func (s *mediaStore) Add(m *Media) (string, error) {
	sum := sha256.Sum256(m.Data)
	if key, ok := s.byHash[sum]; ok {
		return key, nil
	}
	s.seq++
	key := Pad(s.seq) + getImageExtension(m.MimeType)
	href, err := s.pkg.AddMedia(key, m.MimeType, m.Data)
	if err != nil {
		return "", err
	}
	s.byHash[sum] = key
	s.hrefs[key] = href
	return key, nil
}

// Resolve returns the package path of a media key.
func (s *mediaStore) Resolve(key string) (string, bool) {
	href, ok := s.hrefs[strings.TrimSpace(key)]
	return href, ok
}

// Len returns the number of images added.
func (s *mediaStore) Len() int {
	return len(s.hrefs)
}
