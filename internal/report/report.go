// Package report parses and emits the carve-tool's dfxml-flavored report
// format: a root element carrying an optional source image filename and
// zero or more fileobject entries, each describing one recovered file as
// a name, size, and list of disk byte-runs.
package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/gaby/carvemerge/internal/filedesc"
)

// ParseError wraps an underlying XML decode failure.
type ParseError struct{ Err error }

func (e *ParseError) Error() string { return fmt.Sprintf("report: error parsing: %s", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError means a fileobject is missing a required child element.
type MissingFieldError struct{ FieldName string }

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("report: missing field %s in xml", e.FieldName)
}

// MissingTextError means an element has no text content.
type MissingTextError struct{ FieldName string }

func (e *MissingTextError) Error() string {
	return fmt.Sprintf("report: missing text in field %s in xml", e.FieldName)
}

// BadChildNameError means a byte_runs child isn't named byte_run.
type BadChildNameError struct{ ExpectedName, FieldName string }

func (e *BadChildNameError) Error() string {
	return fmt.Sprintf("report: unexpected child of name %s in xml, expected %s", e.FieldName, e.ExpectedName)
}

// MissingAttrError means a byte_run element is missing a required attribute.
type MissingAttrError struct{ AttrName, FieldName string }

func (e *MissingAttrError) Error() string {
	return fmt.Sprintf("report: missing attr %s in field %s in xml", e.AttrName, e.FieldName)
}

// MalformedTextError means an element's text content isn't a valid integer.
type MalformedTextError struct {
	FieldName string
	Source    error
}

func (e *MalformedTextError) Error() string {
	return fmt.Sprintf("report: malformed text in field %s in xml, parse error: %s", e.FieldName, e.Source)
}
func (e *MalformedTextError) Unwrap() error { return e.Source }

// MalformedAttrError means a byte_run attribute isn't a valid integer.
type MalformedAttrError struct {
	AttrName, FieldName string
	Source              error
}

func (e *MalformedAttrError) Error() string {
	return fmt.Sprintf("report: malformed attr %s in field %s in xml, parse error: %s", e.AttrName, e.FieldName, e.Source)
}
func (e *MalformedAttrError) Unwrap() error { return e.Source }

// BadFileDescriptionError means a fileobject's byte-runs don't form a
// valid FileDescription.
type BadFileDescriptionError struct {
	FileName string
	Source   error
}

func (e *BadFileDescriptionError) Error() string {
	return fmt.Sprintf("report: file %s has a bad file description: %s", e.FileName, e.Source)
}
func (e *BadFileDescriptionError) Unwrap() error { return e.Source }

// xmlAny is a generic decode tree node, used only while parsing so that a
// malformed fileobject can be diagnosed field-by-field without losing the
// well-formed ones around it.
type xmlAny struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content []byte     `xml:",innerxml"`
	Nodes   []xmlAny   `xml:",any"`
}

// Entry is one successfully parsed fileobject.
type Entry struct {
	Name string
	Desc *filedesc.FileDescription
}

// Report holds a parsed (or to-be-written) carve report: an optional
// source image filename, plus the raw parsed element tree so that
// malformed fileobjects can still be iterated without losing the well
// formed ones around them.
type Report struct {
	imageFilename string
	hasImage      bool
	fileObjects   []xmlAny
	outEntries    []Entry
}

// Parse decodes r as a carve report. A structurally malformed XML document
// is a hard error; semantic validation of individual fileobjects is
// deferred to All so that one bad entry doesn't prevent reading the
// rest of the report.
func Parse(r io.Reader) (*Report, error) {
	var root xmlAny
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, &ParseError{Err: err}
	}

	rep := &Report{}
	for _, child := range root.Nodes {
		if child.XMLName.Local == "source" {
			for _, sc := range child.Nodes {
				if sc.XMLName.Local == "image_filename" {
					if text := textOf(sc); text != "" {
						rep.imageFilename = text
						rep.hasImage = true
					}
				}
			}
		}
		if child.XMLName.Local == "fileobject" {
			rep.fileObjects = append(rep.fileObjects, child)
		}
	}
	return rep, nil
}

func textOf(n xmlAny) string {
	// innerxml of a leaf text node has no nested elements; trim raw bytes.
	if len(n.Nodes) != 0 {
		return ""
	}
	s := string(n.Content)
	return trimSpace(s)
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// ImageFilename returns the report's source image filename, if present.
func (r *Report) ImageFilename() (string, bool) { return r.imageFilename, r.hasImage }

// SetImageFilename replaces the report's source image filename, returning
// the old value.
func (r *Report) SetImageFilename(name string) (old string, hadOld bool) {
	old, hadOld = r.imageFilename, r.hasImage
	r.imageFilename, r.hasImage = name, true
	return
}

// IterResult is one fileobject's parse outcome: either a valid Entry, or
// an error describing why it was rejected.
type IterResult struct {
	Entry Entry
	Err   error
}

// All parses every fileobject, returning one IterResult per element in
// document order — a malformed fileobject yields an error in its slot
// without interrupting the rest.
func (r *Report) All() []IterResult {
	out := make([]IterResult, len(r.fileObjects))
	for i, fo := range r.fileObjects {
		e, err := toFileDescription(fo)
		out[i] = IterResult{Entry: e, Err: err}
	}
	return out
}

func findChild(n xmlAny, name string) (xmlAny, bool) {
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return xmlAny{}, false
}

func getChild(n xmlAny, name string) (xmlAny, error) {
	c, ok := findChild(n, name)
	if !ok {
		return xmlAny{}, &MissingFieldError{FieldName: name}
	}
	return c, nil
}

func getText(n xmlAny) (string, error) {
	s := trimSpace(string(n.Content))
	if s == "" && len(n.Nodes) == 0 {
		return "", &MissingTextError{FieldName: n.XMLName.Local}
	}
	return s, nil
}

func getNumber(n xmlAny) (uint64, error) {
	s, err := getText(n)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &MalformedTextError{FieldName: n.XMLName.Local, Source: err}
	}
	return v, nil
}

func getAttr(n xmlAny, name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func getAttrNumber(n xmlAny, name string) (uint64, error) {
	s, ok := getAttr(n, name)
	if !ok {
		return 0, &MissingAttrError{AttrName: name, FieldName: n.XMLName.Local}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &MalformedAttrError{AttrName: name, FieldName: n.XMLName.Local, Source: err}
	}
	return v, nil
}

func toFileDescription(fo xmlAny) (Entry, error) {
	nameElem, err := getChild(fo, "filename")
	if err != nil {
		return Entry{}, err
	}
	name, err := getText(nameElem)
	if err != nil {
		return Entry{}, err
	}

	sizeElem, err := getChild(fo, "filesize")
	if err != nil {
		return Entry{}, err
	}
	size, err := getNumber(sizeElem)
	if err != nil {
		return Entry{}, err
	}

	runsElem, err := getChild(fo, "byte_runs")
	if err != nil {
		return Entry{}, err
	}

	var runs []filedesc.ByteRun
	for _, c := range runsElem.Nodes {
		if c.XMLName.Local != "byte_run" {
			return Entry{}, &BadChildNameError{ExpectedName: "byte_run", FieldName: c.XMLName.Local}
		}
		off, err := getAttrNumber(c, "offset")
		if err != nil {
			return Entry{}, err
		}
		img, err := getAttrNumber(c, "img_offset")
		if err != nil {
			return Entry{}, err
		}
		ln, err := getAttrNumber(c, "len")
		if err != nil {
			return Entry{}, err
		}
		runs = append(runs, filedesc.ByteRun{FileOffset: off, DiskPos: img, Len: ln})
	}

	fd, err := filedesc.New(size, runs)
	if err != nil {
		return Entry{}, &BadFileDescriptionError{FileName: name, Source: err}
	}
	return Entry{Name: name, Desc: fd}, nil
}

// FromDescriptions builds a Report ready to be written from a set of
// (name, *FileDescription) pairs, in the order given. WriteTo emits only
// entries given here: parsed reports carry their fileobjects as a raw
// decode tree instead, and a report read with Parse writes no fileobjects.
func FromDescriptions(entries []Entry) *Report {
	rep := &Report{}
	for _, e := range entries {
		rep.outEntries = append(rep.outEntries, e)
	}
	return rep
}

// outMarshal mirrors the dfxml element shapes for writing, kept separate
// from the decode-side xmlAny tree so that attribute/text escaping goes
// through encoding/xml's normal marshaling path rather than raw innerxml.
type outByteRun struct {
	Offset    uint64 `xml:"offset,attr"`
	ImgOffset uint64 `xml:"img_offset,attr"`
	Len       uint64 `xml:"len,attr"`
}

type outByteRuns struct {
	Runs []outByteRun `xml:"byte_run"`
}

type outFileObject struct {
	XMLName  xml.Name    `xml:"fileobject"`
	Filename string      `xml:"filename"`
	FileSize uint64      `xml:"filesize"`
	ByteRuns outByteRuns `xml:"byte_runs"`
}

type outRoot struct {
	XMLName     xml.Name        `xml:"dfxml"`
	FileObjects []outFileObject `xml:"fileobject"`
}

// WriteTo emits the report as dfxml-shaped XML.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	root := outRoot{}
	for _, e := range r.outEntries {
		fo := outFileObject{Filename: e.Name, FileSize: e.Desc.Size()}
		for _, br := range e.Desc.Runs() {
			fo.ByteRuns.Runs = append(fo.ByteRuns.Runs, outByteRun{
				Offset: br.FileOffset, ImgOffset: br.DiskPos, Len: br.Len,
			})
		}
		root.FileObjects = append(root.FileObjects, fo)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return 0, err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return 0, err
	}
	return 0, enc.Flush()
}
