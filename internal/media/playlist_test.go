package media

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseLocalPlaylistM3U(t *testing.T) {
	dir := t.TempDir()
	playlist := filepath.Join(dir, "list.m3u")
	writeFile(t, playlist, "\uFEFF#EXTM3U\n\nsong1.mp3\n#comment\n\"https://example.com/stream\"\nsub/song2.wav\n")

	got, err := ParseLocalPlaylist(playlist)
	if err != nil {
		t.Fatalf("ParseLocalPlaylist() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "song1.mp3"),
		filepath.Join(dir, "sub", "song2.wav"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseLocalPlaylist() = %#v, want %#v", got, want)
	}
}

func TestParseLocalPlaylistPLS(t *testing.T) {
	dir := t.TempDir()
	playlist := filepath.Join(dir, "list.pls")
	writeFile(t, playlist, "[playlist]\n file1 = one.flac \nTitle1=One\nFile2=https://example.com/live\nFileX=bad.mp3\nFile3=\n")

	got, err := ParseLocalPlaylist(playlist)
	if err != nil {
		t.Fatalf("ParseLocalPlaylist() error = %v", err)
	}

	want := []string{filepath.Join(dir, "one.flac")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseLocalPlaylist() = %#v, want %#v", got, want)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	song := filepath.Join(dir, "a.mp3")
	writeFile(t, song, "x")
	writeFile(t, filepath.Join(dir, "b.wav"), "x")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	playlist := filepath.Join(dir, "set.m3u8")
	writeFile(t, playlist, "b.wav\nmissing.mp3\nnotes.txt\n")

	got, err := ExpandInputs([]string{song, playlist})
	if err != nil {
		t.Fatalf("ExpandInputs() error = %v", err)
	}
	want := []string{song, filepath.Join(dir, "b.wav")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExpandInputs() = %#v, want %#v", got, want)
	}
}

func TestExpandInputsErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	empty := filepath.Join(dir, "empty.m3u")
	writeFile(t, empty, "#EXTM3U\n")

	tests := []struct {
		name string
		args []string
	}{
		{"missing", []string{filepath.Join(dir, "nope.mp3")}},
		{"directory", []string{dir + "/"}},
		{"unsupported", []string{filepath.Join(dir, "notes.txt")}},
		{"empty playlist", []string{empty}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExpandInputs(tt.args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
