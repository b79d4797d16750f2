// Package container reads and writes OpenDocument packages.
//
// A package is a zip archive whose first entry, "mimetype", is stored
// uncompressed, followed by XML parts (content.xml, styles.xml, ...), media
// files and META-INF/manifest.xml listing every file. The renderer only
// needs whole-part access, so a Package keeps every entry in memory.
package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// Well known entry names.
const (
	MimeTypePart = "mimetype"
	ContentPart  = "content.xml"
	StylesPart   = "styles.xml"
	MetaPart     = "meta.xml"
	ManifestPart = "META-INF/manifest.xml"
	// MediaDir is the directory images are stored in.
	MediaDir = "Pictures/"
)

// Mime types of text documents and templates.
const (
	MimeTypeText         = "application/vnd.oasis.opendocument.text"
	MimeTypeTextTemplate = "application/vnd.oasis.opendocument.text-template"
)

const odfMimePrefix = "application/vnd.oasis.opendocument."

var (
	// ErrNotODF is returned for archives that are not OpenDocument packages.
	ErrNotODF = errors.New("not an OpenDocument package")
	// ErrPartNotFound is returned when reading a missing entry.
	ErrPartNotFound = errors.New("part not found")
	// ErrExists is returned when adding media under a name already taken.
	ErrExists = errors.New("entry already exists")
)

type entry struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

// Package is an OpenDocument package held in memory. It is not safe for
// concurrent use; Clone gives each render its own copy.
type Package struct {
	mimeType string
	order    []string
	files    map[string]*entry
	// added lists manifest entries to create on write, by full path.
	added map[string]string
}

// Open reads a package from r.
func Open(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip file: %w", err)
	}

	p := &Package{
		files: make(map[string]*entry, len(zr.File)),
		added: make(map[string]string),
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		data, err := readFile(f)
		if err != nil {
			return nil, err
		}
		p.order = append(p.order, f.Name)
		p.files[f.Name] = &entry{name: f.Name, method: f.Method, modified: f.Modified, data: data}
	}

	mt, ok := p.files[MimeTypePart]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotODF, MimeTypePart)
	}
	p.mimeType = strings.TrimSpace(string(mt.data))
	if !strings.HasPrefix(p.mimeType, odfMimePrefix) {
		return nil, fmt.Errorf("%w: unexpected mime type %q", ErrNotODF, p.mimeType)
	}
	if _, ok := p.files[ContentPart]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotODF, ContentPart)
	}
	return p, nil
}

// OpenBytes reads a package from memory.
func OpenBytes(data []byte) (*Package, error) {
	return Open(bytes.NewReader(data), int64(len(data)))
}

// OpenFile reads a package from disk.
func OpenFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return OpenBytes(data)
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}

// MimeType returns the package's declared mime type.
func (p *Package) MimeType() string {
	return p.mimeType
}

// HasPart reports whether the package holds an entry called name.
func (p *Package) HasPart(name string) bool {
	_, ok := p.files[name]
	return ok
}

// ReadPart returns a copy of the entry called name.
func (p *Package) ReadPart(name string) ([]byte, error) {
	e, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	return bytes.Clone(e.data), nil
}

// WritePart replaces the entry called name, or adds it at the end.
func (p *Package) WritePart(name string, data []byte) {
	if e, ok := p.files[name]; ok {
		e.data = bytes.Clone(data)
		return
	}
	p.order = append(p.order, name)
	p.files[name] = &entry{name: name, method: zip.Deflate, data: bytes.Clone(data)}
	if strings.HasSuffix(name, ".xml") {
		p.added[name] = "text/xml"
	}
}

// ListParts returns every entry name in archive order.
func (p *Package) ListParts() []string {
	return append([]string(nil), p.order...)
}

// ListMedia returns the names of the files in MediaDir, without the
// directory, sorted.
func (p *Package) ListMedia() []string {
	var names []string
	for _, name := range p.order {
		if rest, ok := strings.CutPrefix(name, MediaDir); ok && rest != "" && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names
}

// AddMedia stores data as MediaDir+name and registers it in the manifest.
// It returns the full path of the new entry.
func (p *Package) AddMedia(name, mimeType string, data []byte) (string, error) {
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid media name %q", name)
	}
	path := MediaDir + name
	if _, ok := p.files[path]; ok {
		return "", fmt.Errorf("%w: %s", ErrExists, path)
	}
	// Images are already compressed.
	p.order = append(p.order, path)
	p.files[path] = &entry{name: path, method: zip.Store, modified: time.Now(), data: bytes.Clone(data)}
	p.added[path] = mimeType
	return path, nil
}

// Clone returns an independent copy. Entry contents are shared until
// written.
func (p *Package) Clone() *Package {
	c := &Package{
		mimeType: p.mimeType,
		order:    append([]string(nil), p.order...),
		files:    make(map[string]*entry, len(p.files)),
		added:    make(map[string]string, len(p.added)),
	}
	for name, e := range p.files {
		cp := *e
		c.files[name] = &cp
	}
	for name, mt := range p.added {
		c.added[name] = mt
	}
	return c
}

// WriteTo writes the package as a zip archive. The mimetype entry comes
// first, stored without compression or extra fields.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	if len(p.added) > 0 {
		if err := p.updateManifest(); err != nil {
			return 0, err
		}
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	mt := []byte(p.mimeType)
	fw, err := zw.CreateRaw(&zip.FileHeader{
		Name:               MimeTypePart,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(mt),
		CompressedSize64:   uint64(len(mt)),
		UncompressedSize64: uint64(len(mt)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", MimeTypePart, err)
	}
	if _, err := fw.Write(mt); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", MimeTypePart, err)
	}

	for _, name := range p.order {
		if name == MimeTypePart {
			continue
		}
		e := p.files[name]
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: e.method, Modified: e.modified})
		if err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return buf.WriteTo(w)
}

// Bytes is WriteTo into memory.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
