package media

import (
	"strings"
	"testing"
)

func TestIsSupportedExtIncludesFFmpegFormats(t *testing.T) {
	for _, ext := range []string{".aac", ".M4A", ".m4b", ".opus"} {
		if !IsSupportedExt(ext) {
			t.Fatalf("expected %s to be supported", ext)
		}
	}
	if IsSupportedExt(".txt") {
		t.Fatal("expected .txt to be rejected")
	}
}

func TestSupportedExtsListMatchesTable(t *testing.T) {
	list := SupportedExtsList()
	for ext := range audioExts {
		if !strings.Contains(list, ext) {
			t.Fatalf("expected supported ext list to include %s, got %q", ext, list)
		}
	}
}

func TestContainerMIME(t *testing.T) {
	tests := map[string]string{
		"mp4":   "video/mp4",
		".webm": "video/webm",
		"MOV":   "video/quicktime",
		"gif":   "application/octet-stream",
	}
	for ext, want := range tests {
		if got := ContainerMIME(ext); got != want {
			t.Fatalf("ContainerMIME(%q) = %q, want %q", ext, got, want)
		}
	}
}
