package scan

import "testing"

func TestIsSupported(t *testing.T) {
	supported := []string{"a.png", "b.JPG", "c.jpeg", "d.tiff", "e.bmp", "scans/f.PDF"}
	for _, path := range supported {
		if !IsSupported(path) {
			t.Fatalf("%s should be supported", path)
		}
	}
	unsupported := []string{"a.txt", "b.gif", "c.heic", "noext", "d.png.bak"}
	for _, path := range unsupported {
		if IsSupported(path) {
			t.Fatalf("%s should not be supported", path)
		}
	}
}

func TestIsPDF(t *testing.T) {
	if !IsPDF("x/y/receipt.PDF") {
		t.Fatal("expected pdf")
	}
	if IsPDF("receipt.png") {
		t.Fatal("png is not pdf")
	}
}
