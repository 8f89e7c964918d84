package models

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Protocol-Lattice/cursor-agent/src/concurrent"
)

// maxImageBytes bounds a single attachment; vendors reject larger payloads.
const maxImageBytes = 20 << 20

var (
	imageExtMap = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".bmp":  "image/bmp",
		".heic": "image/heic",
		".svg":  "image/svg+xml",
	}

	mimeAliasMap = map[string]string{
		"image/jpg":   "image/jpeg",
		"image/pjpeg": "image/jpeg",
		"image/x-png": "image/png",
	}

	mimeCache   = make(map[string]string, 64)
	mimeCacheMu sync.RWMutex
)

// LoadImages reads image files from disk, at most four at a time, and
// returns them in the order given.
func LoadImages(ctx context.Context, paths []string) ([]Image, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image paths given")
	}
	return concurrent.ParallelMap(ctx, paths, LoadImage, 4)
}

// LoadImage reads one image file and determines its MIME type from the
// extension, falling back to content sniffing.
func LoadImage(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, fmt.Errorf("image %s: %w", path, err)
	}
	if info.IsDir() {
		return Image{}, fmt.Errorf("image %s: is a directory", path)
	}
	if info.Size() > maxImageBytes {
		return Image{}, fmt.Errorf("image %s: %d bytes exceeds limit of %d", path, info.Size(), maxImageBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("image %s: %w", path, err)
	}

	mt := normalizeMIME(path, "")
	if !isImageMIME(mt) {
		mt = stripParams(http.DetectContentType(data))
	}
	if !isImageMIME(mt) {
		return Image{}, fmt.Errorf("image %s: unsupported content type %q", path, mt)
	}
	return Image{Name: filepath.Base(path), MIME: mt, Data: data}, nil
}

// normalizeMIME fixes alias or malformed MIME types and falls back to the
// file extension.
func normalizeMIME(name, m string) string {
	cacheKey := name + "|" + m
	mimeCacheMu.RLock()
	if cached, ok := mimeCache[cacheKey]; ok {
		mimeCacheMu.RUnlock()
		return cached
	}
	mimeCacheMu.RUnlock()

	result := resolveMIME(name, m)

	mimeCacheMu.Lock()
	if len(mimeCache) < 1000 {
		mimeCache[cacheKey] = result
	}
	mimeCacheMu.Unlock()
	return result
}

func resolveMIME(name, m string) string {
	fromExt := func() string {
		ext := strings.ToLower(filepath.Ext(name))
		if ext == "" {
			return ""
		}
		if mt, ok := imageExtMap[ext]; ok {
			return mt
		}
		return stripParams(mime.TypeByExtension(ext))
	}

	raw := stripParams(strings.ToLower(m))
	if raw == "" {
		return fromExt()
	}
	for strings.HasPrefix(raw, "image/image/") {
		raw = "image/" + strings.TrimPrefix(raw, "image/image/")
	}
	if alias, ok := mimeAliasMap[raw]; ok {
		return alias
	}
	if !strings.Contains(raw, "/") || strings.HasSuffix(raw, "/") {
		if via := fromExt(); via != "" {
			return via
		}
	}
	return raw
}

func stripParams(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func isImageMIME(m string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m)), "image/")
}

// sanitizeForAnthropic returns the media type Anthropic accepts for m, or ""
// when the image cannot be attached.
func sanitizeForAnthropic(m string) string {
	switch normalizeMIME("", m) {
	case "image/jpeg":
		return "image/jpeg"
	case "image/png":
		return "image/png"
	case "image/gif":
		return "image/gif"
	case "image/webp":
		return "image/webp"
	default:
		return ""
	}
}

// getOpenAIMimeType returns the data-URL media type OpenAI accepts, or "".
func getOpenAIMimeType(m string) string {
	return sanitizeForAnthropic(m) // same four formats
}

// sanitizeForOllama returns m when Ollama vision models decode it, or "".
func sanitizeForOllama(m string) string {
	switch mt := normalizeMIME("", m); mt {
	case "image/png", "image/jpeg":
		return mt
	default:
		return ""
	}
}

// AcceptsImage reports whether the provider of kind can be sent an image of
// media type m.
func AcceptsImage(kind Kind, m string) bool {
	switch kind {
	case KindAnthropic:
		return sanitizeForAnthropic(m) != ""
	case KindOpenAI:
		return getOpenAIMimeType(m) != ""
	case KindGemini:
		return sanitizeForGemini(m) != ""
	case KindOllama:
		return sanitizeForOllama(m) != ""
	default:
		return false
	}
}

// imagePlaceholder stands in for an image that cannot be attached, such as
// one restored from a transcript without its bytes.
func imagePlaceholder(img Image) string {
	name := img.Name
	if name == "" {
		name = "image"
	}
	return "[image: " + name + "]"
}

// withImageNotes appends placeholders for dropped images to content.
func withImageNotes(content string, notes []string) string {
	if len(notes) == 0 {
		return content
	}
	joined := strings.Join(notes, "\n")
	if content == "" {
		return joined
	}
	return content + "\n" + joined
}

// sanitizeForGemini returns the short image format genai.ImageData expects
// ("png", "jpeg", ...), or "".
func sanitizeForGemini(m string) string {
	switch normalizeMIME("", m) {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpeg"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	case "image/gif":
		return "gif"
	default:
		return ""
	}
}
