package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// extractDOCX extracts text from .docx bytes. A DOCX is a zip whose main part
// (usually word/document.xml) holds the body as OOXML; the visible text lives
// in <w:t> elements, which we collect with a streaming XML walk so attributes
// on paragraphs and runs never matter.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := docxMainPartName(zr)
	data, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	parts, err := xmlElementText(data, "t")
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

// docxMainPartName resolves the main document part from [Content_Types].xml,
// falling back to the conventional location. Some producers store the body
// under a nonstandard name and declare it via an Override entry.
func docxMainPartName(zr *zip.Reader) string {
	data, err := readZipFile(zr, "[Content_Types].xml")
	if err != nil {
		return "word/document.xml"
	}
	var types struct {
		Overrides []struct {
			PartName    string `xml:"PartName,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Override"`
	}
	if err := xml.Unmarshal(data, &types); err != nil {
		return "word/document.xml"
	}
	for _, o := range types.Overrides {
		if o.ContentType == docxMainContentType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return "word/document.xml"
}

// readZipFile returns the contents of name within the archive.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

// xmlElementText walks the document and collects the character data inside
// every element whose local name matches, namespace-independently.
func xmlElementText(data []byte, local string) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var parts []string
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == local {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == local && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				if s := strings.TrimSpace(string(t)); s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return parts, nil
}
