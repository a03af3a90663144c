package media

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ParseLocalPlaylist parses a local .m3u/.m3u8/.pls file into file paths.
// Relative entries are resolved against the playlist directory; remote
// entries are dropped since assets are always read from disk.
func ParseLocalPlaylist(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsPlaylistExt(ext) {
		return nil, fmt.Errorf("unsupported playlist format %s", ext)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("playlist is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	baseDir := filepath.Dir(abs)
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var raw []string
	if ext == ".pls" {
		raw = parsePLS(scanner)
	} else {
		raw = parseM3U(scanner)
	}

	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		entry = strings.Trim(entry, `"`)
		if isRemote(entry) {
			continue
		}
		out = append(out, resolveEntry(entry, baseDir))
	}
	return out, nil
}

// ExpandInputs turns command-line arguments into a list of loadable audio
// files. Playlists are expanded in place; their unplayable entries are
// skipped. A plain argument that does not exist or has an unsupported
// extension is an error.
func ExpandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		ext := strings.ToLower(filepath.Ext(arg))
		if IsPlaylistExt(ext) {
			entries, err := ParseLocalPlaylist(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, FilterPlayableLocalPaths(entries)...)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", arg)
		}
		if !IsSupportedExt(ext) {
			return nil, fmt.Errorf("unsupported format %s (supported: %s)", ext, SupportedExtsList())
		}
		out = append(out, arg)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no playable inputs")
	}
	return out, nil
}

// FilterPlayableLocalPaths keeps only existing, non-directory, supported media files.
func FilterPlayableLocalPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if !IsSupportedExt(filepath.Ext(p)) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func parseM3U(scanner *bufio.Scanner) []string {
	var entries []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

func parsePLS(scanner *bufio.Scanner) []string {
	var entries []string
	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if val == "" || !isPLSFileKey(key) {
			continue
		}
		entries = append(entries, val)
	}
	return entries
}

func isPLSFileKey(key string) bool {
	if len(key) <= len("file") || !strings.EqualFold(key[:len("file")], "file") {
		return false
	}
	for _, c := range key[len("file"):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isRemote(entry string) bool {
	lower := strings.ToLower(entry)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func resolveEntry(raw, baseDir string) string {
	p := filepath.Clean(raw)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
