package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractPlain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello world"), ".txt")
	if err != nil || got != "hello world" {
		t.Errorf("got %q, %v", got, err)
	}
	// Unknown extensions fall back to plain text.
	got, err = e.ExtractBytes([]byte("log line"), ".log")
	if err != nil || got != "log line" {
		t.Errorf("fallback: %q, %v", got, err)
	}
	// Invalid UTF-8 is repaired, not rejected.
	got, err = e.ExtractBytes([]byte{0x68, 0x69, 0xff, 0xfe}, ".txt")
	if err != nil {
		t.Fatalf("invalid utf8: %v", err)
	}
	if !strings.HasPrefix(got, "hi") || !strings.Contains(got, "�") {
		t.Errorf("repaired = %q", got)
	}
}

func TestExtractFromFile(t *testing.T) {
	e := NewExtractor()
	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("# heading\n\nbody text"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "body text") {
		t.Errorf("got %q", got)
	}
	if _, err := e.Extract(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractHTML(t *testing.T) {
	e := NewExtractor()
	doc := `<html><head><style>p{color:red}</style><script>var x=1;</script></head>
<body><h1>Title</h1><p>First paragraph.</p><p>Second one.</p></body></html>`
	got, err := e.ExtractBytes([]byte(doc), ".html")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	for _, want := range []string{"Title", "First paragraph.", "Second one."} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
	for _, banned := range []string{"var x", "color:red"} {
		if strings.Contains(got, banned) {
			t.Errorf("leaked %q in %q", banned, got)
		}
	}
}

func buildDocx(t *testing.T, partName, documentXML string, withOverride bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if withOverride {
		ct, err := zw.Create("[Content_Types].xml")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = ct.Write([]byte(`<?xml version="1.0"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/` + partName + `" ContentType="` + docxMainContentType + `"/>
</Types>`))
	}
	w, err := zw.Create(partName)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte(documentXML))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	e := NewExtractor()
	body := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p w:rsidR="00A"><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve">docx world</w:t></w:r></w:p></w:body>
</w:document>`

	got, err := e.ExtractBytes(buildDocx(t, "word/document.xml", body, false), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello docx world" {
		t.Errorf("got %q", got)
	}

	// Main part declared under a nonstandard name.
	got, err = e.ExtractBytes(buildDocx(t, "word/document2.xml", body, true), ".docx")
	if err != nil {
		t.Fatalf("nonstandard part: %v", err)
	}
	if got != "Hello docx world" {
		t.Errorf("nonstandard part: got %q", got)
	}

	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
}

func TestExtractExcel(t *testing.T) {
	e := NewExtractor()
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "alpha")
	_ = f.SetCellValue("Sheet1", "B1", "beta")
	_ = f.SetCellValue("Sheet1", "A2", "gamma")
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := e.ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !strings.Contains(got, "alpha\tbeta") || !strings.Contains(got, "gamma") {
		t.Errorf("got %q", got)
	}
}

func TestSupported(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".txt", ".PDF", ".docx", ".html", ".odt"} {
		if !e.Supported(ext) {
			t.Errorf("%s should be supported", ext)
		}
	}
	if e.Supported(".exe") {
		t.Error(".exe should not be supported")
	}
}
