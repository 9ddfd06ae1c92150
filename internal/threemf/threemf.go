// Package threemf packages colored meshes as a 3MF archive.
//
// A 3MF file is a zip container holding:
//
//	[Content_Types].xml      part content types
//	_rels/.rels              package relationships (model and thumbnail)
//	3D/3dmodel.model         the model XML: materials, objects, build items
//	Metadata/thumbnail.png   optional preview image
//
// Every object is bound to one entry of a single basematerials group so
// slicers pick up the display color. Build items carry no transform; geometry
// is authored in place.
package threemf

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
	"github.com/ironsheep/relief-tools-mcp/internal/mesh"
)

// Part names inside the archive.
const (
	ContentTypesPath = "[Content_Types].xml"
	RelsPath         = "_rels/.rels"
	ModelPath        = "3D/3dmodel.model"
	ThumbnailPath    = "Metadata/thumbnail.png"
)

const (
	coreNamespace       = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"
	productionNamespace = "http://schemas.microsoft.com/3dmanufacturing/production/2015/06"
	relsNamespace       = "http://schemas.openxmlformats.org/package/2006/relationships"
	typesNamespace      = "http://schemas.openxmlformats.org/package/2006/content-types"
	modelRelType        = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"
	thumbnailRelType    = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail"
	modelContentType    = "application/vnd.ms-package.3dmanufacturing-3dmodel+xml"
	relsContentType     = "application/vnd.openxmlformats-package.relationships+xml"

	materialGroupID = 1
)

// uuidSpace scopes the name-based object UUIDs so the same package content
// always produces the same identifiers.
var uuidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ironsheep/relief-tools-mcp/3mf"))

// ErrNoObjects is returned when a package has nothing to build.
var ErrNoObjects = errors.New("3mf: package has no objects")

// ArchiveWriter is the container the package is written into. *zip.Writer from
// archive/zip or github.com/klauspost/compress/zip satisfies it.
type ArchiveWriter interface {
	Create(name string) (io.Writer, error)
	Close() error
}

// NewZipWriter returns the default ArchiveWriter, a deflating zip writer on w.
func NewZipWriter(w io.Writer) ArchiveWriter {
	return zip.NewWriter(w)
}

// Object is one solid in the package.
type Object struct {
	Name  string
	Color imaging.RGBColor
	Mesh  *mesh.Mesh
}

// Package is everything that goes into a 3MF archive.
type Package struct {
	Title     string
	Objects   []Object
	Thumbnail []byte // PNG; omitted when empty
}

// Write serializes pkg into aw and closes aw. Objects with empty meshes are
// skipped; a package with no remaining objects is an error.
func Write(aw ArchiveWriter, pkg Package) error {
	objects := make([]Object, 0, len(pkg.Objects))
	for _, o := range pkg.Objects {
		if o.Mesh != nil && !o.Mesh.Empty() {
			objects = append(objects, o)
		}
	}
	if len(objects) == 0 {
		return ErrNoObjects
	}

	hasThumb := len(pkg.Thumbnail) > 0
	parts := []struct {
		name  string
		value any
	}{
		{ContentTypesPath, contentTypes()},
		{RelsPath, relationships(hasThumb)},
		{ModelPath, buildModel(pkg.Title, objects)},
	}
	for _, p := range parts {
		if err := writeXML(aw, p.name, p.value); err != nil {
			return err
		}
	}

	if hasThumb {
		w, err := aw.Create(ThumbnailPath)
		if err != nil {
			return fmt.Errorf("3mf: create %s: %w", ThumbnailPath, err)
		}
		if _, err := w.Write(pkg.Thumbnail); err != nil {
			return fmt.Errorf("3mf: write %s: %w", ThumbnailPath, err)
		}
	}

	if err := aw.Close(); err != nil {
		return fmt.Errorf("3mf: finalize archive: %w", err)
	}
	return nil
}

// Marshal writes pkg into an in-memory zip archive.
func Marshal(pkg Package) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(NewZipWriter(&buf), pkg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXML(aw ArchiveWriter, name string, v any) error {
	w, err := aw.Create(name)
	if err != nil {
		return fmt.Errorf("3mf: create %s: %w", name, err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("3mf: write %s: %w", name, err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("3mf: encode %s: %w", name, err)
	}
	return nil
}

// Package parts.

type xmlTypes struct {
	XMLName  xml.Name     `xml:"Types"`
	Xmlns    string       `xml:"xmlns,attr"`
	Defaults []xmlDefault `xml:"Default"`
}

type xmlDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

func contentTypes() xmlTypes {
	return xmlTypes{
		Xmlns: typesNamespace,
		Defaults: []xmlDefault{
			{Extension: "rels", ContentType: relsContentType},
			{Extension: "model", ContentType: modelContentType},
			{Extension: "png", ContentType: "image/png"},
		},
	}
}

type xmlRelationships struct {
	XMLName       xml.Name          `xml:"Relationships"`
	Xmlns         string            `xml:"xmlns,attr"`
	Relationships []xmlRelationship `xml:"Relationship"`
}

type xmlRelationship struct {
	Target string `xml:"Target,attr"`
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
}

func relationships(thumbnail bool) xmlRelationships {
	rels := xmlRelationships{
		Xmlns: relsNamespace,
		Relationships: []xmlRelationship{
			{Target: "/" + ModelPath, ID: "rel0", Type: modelRelType},
		},
	}
	if thumbnail {
		rels.Relationships = append(rels.Relationships,
			xmlRelationship{Target: "/" + ThumbnailPath, ID: "rel1", Type: thumbnailRelType})
	}
	return rels
}

// Model XML.

type xmlModel struct {
	XMLName   xml.Name      `xml:"model"`
	Unit      string        `xml:"unit,attr"`
	Lang      string        `xml:"xml:lang,attr"`
	Xmlns     string        `xml:"xmlns,attr"`
	XmlnsP    string        `xml:"xmlns:p,attr"`
	Metadata  []xmlMetadata `xml:"metadata"`
	Resources xmlResources  `xml:"resources"`
	Build     xmlBuild      `xml:"build"`
}

type xmlMetadata struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlResources struct {
	Materials xmlBaseMaterials `xml:"basematerials"`
	Objects   []xmlObject      `xml:"object"`
}

type xmlBaseMaterials struct {
	ID    int       `xml:"id,attr"`
	Bases []xmlBase `xml:"base"`
}

type xmlBase struct {
	Name         string `xml:"name,attr"`
	DisplayColor string `xml:"displaycolor,attr"`
}

type xmlObject struct {
	ID     int     `xml:"id,attr"`
	Name   string  `xml:"name,attr"`
	Type   string  `xml:"type,attr"`
	PID    int     `xml:"pid,attr"`
	PIndex int     `xml:"pindex,attr"`
	UUID   string  `xml:"p:UUID,attr"`
	Mesh   xmlMesh `xml:"mesh"`
}

type xmlMesh struct {
	Vertices  []xmlVertex   `xml:"vertices>vertex"`
	Triangles []xmlTriangle `xml:"triangles>triangle"`
}

type xmlVertex struct {
	X string `xml:"x,attr"`
	Y string `xml:"y,attr"`
	Z string `xml:"z,attr"`
}

type xmlTriangle struct {
	V1 int `xml:"v1,attr"`
	V2 int `xml:"v2,attr"`
	V3 int `xml:"v3,attr"`
}

type xmlBuild struct {
	UUID  string    `xml:"p:UUID,attr"`
	Items []xmlItem `xml:"item"`
}

type xmlItem struct {
	ObjectID int    `xml:"objectid,attr"`
	UUID     string `xml:"p:UUID,attr"`
}

// DisplayColor formats c as a 3MF sRGB color with full opacity.
func DisplayColor(c imaging.RGBColor) string {
	return c.Hex() + "FF"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(float64(float32(v)), 'f', -1, 32)
}

func nameUUID(parts ...string) string {
	var b bytes.Buffer
	for _, p := range parts {
		b.WriteString(p)
		b.WriteByte(0)
	}
	return uuid.NewSHA1(uuidSpace, b.Bytes()).String()
}

func buildModel(title string, objects []Object) xmlModel {
	m := xmlModel{
		Unit:   "millimeter",
		Lang:   "en-US",
		Xmlns:  coreNamespace,
		XmlnsP: productionNamespace,
		Metadata: []xmlMetadata{
			{Name: "Application", Value: "relief-tools-mcp"},
		},
		Resources: xmlResources{
			Materials: xmlBaseMaterials{ID: materialGroupID},
		},
		Build: xmlBuild{UUID: nameUUID("build", title)},
	}
	if title != "" {
		m.Metadata = append(m.Metadata, xmlMetadata{Name: "Title", Value: title})
	}

	for i, o := range objects {
		id := materialGroupID + 1 + i
		m.Resources.Materials.Bases = append(m.Resources.Materials.Bases, xmlBase{
			Name:         o.Color.Hex(),
			DisplayColor: DisplayColor(o.Color),
		})

		verts, tris := o.Mesh.Indexed()
		xm := xmlMesh{
			Vertices:  make([]xmlVertex, len(verts)),
			Triangles: make([]xmlTriangle, len(tris)),
		}
		for j, v := range verts {
			xm.Vertices[j] = xmlVertex{X: formatCoord(v.X), Y: formatCoord(v.Y), Z: formatCoord(v.Z)}
		}
		for j, t := range tris {
			xm.Triangles[j] = xmlTriangle{V1: t[0], V2: t[1], V3: t[2]}
		}

		m.Resources.Objects = append(m.Resources.Objects, xmlObject{
			ID:     id,
			Name:   o.Name,
			Type:   "model",
			PID:    materialGroupID,
			PIndex: i,
			UUID:   nameUUID("object", title, o.Name),
			Mesh:   xm,
		})
		m.Build.Items = append(m.Build.Items, xmlItem{
			ObjectID: id,
			UUID:     nameUUID("item", title, o.Name),
		})
	}
	return m
}
