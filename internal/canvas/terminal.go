package canvas

import (
	"fmt"
	"image"
	"os"
	"runtime"
	"strings"
	"sync"
)

// asciiRamp orders characters from darkest to brightest.
const asciiRamp = " .:-=+*#%@"

const ansiReset = "\x1b[0m"

// ColorMode describes how the terminal renders colors.
type ColorMode uint8

const (
	ColorOff     ColorMode = iota // NO_COLOR or dumb terminal
	ColorANSI16                   // basic 16-color
	ColorANSI256                  // 256-color
	ColorTrue                     // 24-bit truecolor
)

var (
	detectOnce sync.Once
	termColor  ColorMode
)

// DetectColorMode checks terminal capabilities once.
func DetectColorMode() ColorMode {
	detectOnce.Do(func() {
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			termColor = ColorOff
			return
		}
		term := strings.ToLower(os.Getenv("TERM"))
		ct := strings.ToLower(os.Getenv("COLORTERM"))
		switch {
		case strings.Contains(ct, "truecolor"), strings.Contains(ct, "24bit"):
			termColor = ColorTrue
		case strings.Contains(term, "256color"):
			termColor = ColorANSI256
		case term == "dumb":
			termColor = ColorOff
		case term == "" && runtime.GOOS == "windows":
			termColor = ColorANSI16
		case term == "":
			termColor = ColorOff
		default:
			termColor = ColorANSI16
		}
	})
	return termColor
}

// TerminalRenderer converts an RGBA frame into a terminal string. In color
// modes it packs two pixel rows per cell with "▀" (fg = top, bg = bottom);
// with colors off it maps luminance to ASCII.
type TerminalRenderer struct {
	mode ColorMode
	sb   strings.Builder
}

// NewTerminalRenderer creates a renderer for the given color mode.
func NewTerminalRenderer(mode ColorMode) *TerminalRenderer {
	return &TerminalRenderer{mode: mode}
}

// Mode returns the renderer's color mode.
func (r *TerminalRenderer) Mode() ColorMode { return r.mode }

// PixelRows returns how many pixel rows fit in rows terminal rows.
func (r *TerminalRenderer) PixelRows(rows int) int {
	if r.mode == ColorOff {
		return rows
	}
	return rows * 2
}

// Render samples img with nearest-neighbour scaling into cols×rows cells.
// Transparent pixels are composited over black.
func (r *TerminalRenderer) Render(img *image.RGBA, cols, rows int) string {
	b := img.Rect
	if b.Dx() <= 0 || b.Dy() <= 0 || cols <= 0 || rows <= 0 {
		return ""
	}

	r.sb.Reset()
	r.sb.Grow(cols * rows * 24)
	if r.mode == ColorOff {
		r.renderASCII(img, cols, rows)
	} else {
		r.renderHalfBlock(img, cols, rows)
	}
	return r.sb.String()
}

func (r *TerminalRenderer) renderHalfBlock(img *image.RGBA, cols, rows int) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pixelRows := rows * 2
	var lastFg, lastBg string

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			srcX := col * w / cols
			tr, tg, tb := samplePixel(img, srcX, row*2*h/pixelRows)
			br, bg, bb := samplePixel(img, srcX, (row*2+1)*h/pixelRows)

			fg := fgColorSeq(r.mode, tr, tg, tb)
			bgc := bgColorSeq(r.mode, br, bg, bb)
			if fg != lastFg {
				r.sb.WriteString(fg)
				lastFg = fg
			}
			if bgc != lastBg {
				r.sb.WriteString(bgc)
				lastBg = bgc
			}
			r.sb.WriteString("▀")
		}
		r.sb.WriteString(ansiReset)
		lastFg, lastBg = "", ""
		if row < rows-1 {
			r.sb.WriteByte('\n')
		}
	}
}

func (r *TerminalRenderer) renderASCII(img *image.RGBA, cols, rows int) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			pr, pg, pb := samplePixel(img, col*w/cols, row*h/rows)
			lum := luminance(pr, pg, pb)
			r.sb.WriteByte(asciiRamp[int(lum)*(len(asciiRamp)-1)/255])
		}
		if row < rows-1 {
			r.sb.WriteByte('\n')
		}
	}
}

// samplePixel reads a pixel; RGBA storage is premultiplied, which is the
// same as compositing over black.
func samplePixel(img *image.RGBA, x, y int) (uint8, uint8, uint8) {
	off := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	if off < 0 || off+2 >= len(img.Pix) {
		return 0, 0, 0
	}
	return img.Pix[off], img.Pix[off+1], img.Pix[off+2]
}

// luminance computes perceived brightness (ITU-R BT.601).
func luminance(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}

func fgColorSeq(mode ColorMode, r, g, b uint8) string {
	switch mode {
	case ColorTrue:
		return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
	case ColorANSI256:
		return fmt.Sprintf("\x1b[38;5;%dm", ansi256Index(r, g, b))
	case ColorANSI16:
		idx := ansi16Index(r, g, b)
		if idx < 8 {
			return fmt.Sprintf("\x1b[%dm", 30+idx)
		}
		return fmt.Sprintf("\x1b[%dm", 90+idx-8)
	default:
		return ""
	}
}

func bgColorSeq(mode ColorMode, r, g, b uint8) string {
	switch mode {
	case ColorTrue:
		return fmt.Sprintf("\x1b[48;2;%d;%d;%dm", r, g, b)
	case ColorANSI256:
		return fmt.Sprintf("\x1b[48;5;%dm", ansi256Index(r, g, b))
	case ColorANSI16:
		idx := ansi16Index(r, g, b)
		if idx < 8 {
			return fmt.Sprintf("\x1b[%dm", 40+idx)
		}
		return fmt.Sprintf("\x1b[%dm", 100+idx-8)
	default:
		return ""
	}
}

func ansi256Index(r, g, b uint8) int {
	return 16 + 36*(int(r)*5/255) + 6*(int(g)*5/255) + int(b)*5/255
}

func ansi16Index(r, g, b uint8) int {
	best := 0
	bestDist := 1<<31 - 1
	for i, c := range ansi16Palette {
		dr := int(r) - int(c[0])
		dg := int(g) - int(c[1])
		db := int(b) - int(c[2])
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

var ansi16Palette = [16][3]uint8{
	{0, 0, 0},       // black
	{205, 49, 49},   // red
	{13, 188, 121},  // green
	{229, 229, 16},  // yellow
	{36, 114, 200},  // blue
	{188, 63, 188},  // magenta
	{17, 168, 205},  // cyan
	{229, 229, 229}, // white
	{102, 102, 102}, // bright black
	{241, 76, 76},   // bright red
	{35, 209, 139},  // bright green
	{245, 245, 67},  // bright yellow
	{59, 142, 234},  // bright blue
	{214, 112, 214}, // bright magenta
	{41, 184, 219},  // bright cyan
	{255, 255, 255}, // bright white
}
