package media

import "strings"

var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".aac":  true,
	".m4a":  true,
	".m4b":  true,
	".opus": true,
}

var playlistExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

var containerMIME = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"mkv":  "video/x-matroska",
}

// IsSupportedExt returns true if the extension is an audio format that can be
// loaded as an asset.
func IsSupportedExt(ext string) bool {
	return audioExts[strings.ToLower(ext)]
}

// IsPlaylistExt returns true if the extension is a supported playlist format.
func IsPlaylistExt(ext string) bool {
	return playlistExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of loadable audio formats.
func SupportedExtsList() string {
	return ".mp3, .wav, .flac, .ogg, .aac, .m4a, .m4b, .opus"
}

// ContainerMIME maps an export container extension (with or without the dot)
// to its media type. Unknown containers report application/octet-stream.
func ContainerMIME(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if m, ok := containerMIME[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
