package qrimg

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderSVG_EmitsConfiguredColors(t *testing.T) {
	data, err := RenderSVG("http://localhost:8080/qr/scan?qrId=X1Y2Z3", DefaultOptions())
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "<svg") || !strings.Contains(body, "</svg>") {
		t.Fatalf("not an SVG document: %.120s", body)
	}
	if !strings.Contains(body, "fill:#2c3cee") {
		t.Fatalf("dark color missing from output")
	}
	if !strings.Contains(body, "fill:#ffffff") {
		t.Fatalf("light background missing from output")
	}
	if !strings.Contains(body, `width="300"`) {
		t.Fatalf("rendered size missing from output")
	}
}

func TestRenderSVG_EmptyContentRejected(t *testing.T) {
	if _, err := RenderSVG("  ", DefaultOptions()); err == nil {
		t.Fatalf("expected error for empty content")
	}
}

func TestRenderSVG_DeterministicForSameInput(t *testing.T) {
	a, err := RenderSVG("https://dest/?qrId=abc123", DefaultOptions())
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	b, err := RenderSVG("https://dest/?qrId=abc123", DefaultOptions())
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("same input must render the same artifact")
	}
}

func TestStore_WriteReadRemove(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "qr-codes"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := st.Write("abc123", []byte("<svg/>")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Readable with and without the extension.
	for _, name := range []string{"abc123", "abc123.svg"} {
		got, err := st.Read(name)
		if err != nil {
			t.Fatalf("Read(%q): %v", name, err)
		}
		if string(got) != "<svg/>" {
			t.Fatalf("Read(%q): unexpected bytes %q", name, got)
		}
	}

	if err := st.Remove("abc123"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := st.Read("abc123"); !os.IsNotExist(err) {
		t.Fatalf("want ErrNotExist after remove, got %v", err)
	}

	// Removing again is not an error (best-effort cleanup).
	if err := st.Remove("abc123"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestStore_PathTraversalStripped(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(filepath.Join(dir, "qr-codes"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := st.Write("abc", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := st.Read("../../abc.svg")
	if err != nil {
		t.Fatalf("Read with traversal components: %v", err)
	}
	if string(got) != "x" {
		t.Fatalf("unexpected bytes %q", got)
	}
}
