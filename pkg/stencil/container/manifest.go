package container

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"
)

const nsManifest = "urn:oasis:names:tc:opendocument:xmlns:manifest:1.0"

// ManifestEntry is one file listed in META-INF/manifest.xml.
type ManifestEntry struct {
	FullPath  string
	MediaType string
}

// Manifest lists the entries of META-INF/manifest.xml.
func (p *Package) Manifest() ([]ManifestEntry, error) {
	_, root, err := p.manifestRoot()
	if err != nil {
		return nil, err
	}
	prefix := root.Space
	var out []ManifestEntry
	for _, fe := range root.SelectElements(qualify(prefix, "file-entry")) {
		out = append(out, ManifestEntry{
			FullPath:  fe.SelectAttrValue(qualify(prefix, "full-path"), ""),
			MediaType: fe.SelectAttrValue(qualify(prefix, "media-type"), ""),
		})
	}
	return out, nil
}

func (p *Package) manifestRoot() (*etree.Document, *etree.Element, error) {
	e, ok := p.files[ManifestPart]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrPartNotFound, ManifestPart)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(e.data); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", ManifestPart, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "manifest" {
		return nil, nil, fmt.Errorf("failed to parse %s: no manifest element", ManifestPart)
	}
	return doc, root, nil
}

// updateManifest adds a file-entry for every added file not yet listed.
// Packages without a manifest get a fresh one.
func (p *Package) updateManifest() error {
	if _, ok := p.files[ManifestPart]; !ok {
		p.WritePart(ManifestPart, newManifest(p.mimeType))
		delete(p.added, ManifestPart)
	}
	doc, root, err := p.manifestRoot()
	if err != nil {
		return err
	}
	prefix := root.Space

	listed := make(map[string]bool)
	for _, fe := range root.SelectElements(qualify(prefix, "file-entry")) {
		listed[fe.SelectAttrValue(qualify(prefix, "full-path"), "")] = true
	}

	paths := make([]string, 0, len(p.added))
	for path := range p.added {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if listed[path] {
			continue
		}
		fe := root.CreateElement(qualify(prefix, "file-entry"))
		fe.CreateAttr(qualify(prefix, "full-path"), path)
		fe.CreateAttr(qualify(prefix, "media-type"), p.added[path])
	}

	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", ManifestPart, err)
	}
	p.files[ManifestPart].data = data
	p.added = make(map[string]string)
	return nil
}

func newManifest(mimeType string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<manifest:manifest xmlns:manifest="` + nsManifest + `" manifest:version="1.2">` +
		`<manifest:file-entry manifest:full-path="/" manifest:media-type="` + mimeType + `"/>` +
		`<manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>` +
		`</manifest:manifest>`)
}

func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
