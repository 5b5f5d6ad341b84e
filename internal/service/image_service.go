package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "image/gif" // Register GIF decoder
	_ "image/png" // Register PNG decoder

	"yatube/internal/config"
	"yatube/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot            = "media"
	DefaultImageMaxUploadSizeMB = 10
	MasterMaxSize               = 2048
	JPEGQuality                 = 82
	WebPQuality                 = 70

	// postImageDir is the media subdirectory post images live in.
	postImageDir = "posts"
)

// ImageUpload is a file submitted in the image field of a post form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageError is a rejected upload; Kind is reported against the image field.
type ImageError struct {
	Kind   models.ErrorKind
	Reason string
}

func (e *ImageError) Error() string {
	return "image rejected: " + e.Reason
}

// PreparedImage is a validated upload re-encoded and ready to write.
type PreparedImage struct {
	Hash string
	JPEG []byte
	WebP []byte
}

// RelJPEG is the media-relative path of the master rendition.
func (p *PreparedImage) RelJPEG() string {
	return path.Join(postImageDir, p.Hash+".jpg")
}

// RelWebP is the media-relative path of the WebP rendition.
func (p *PreparedImage) RelWebP() string {
	return path.Join(postImageDir, p.Hash+".webp")
}

// ImageService validates post images and stores them under the media root.
type ImageService struct {
	mediaRoot          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaRoot := DefaultMediaRoot
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaRoot != "" {
			mediaRoot = cfg.MediaRoot
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		mediaRoot:          mediaRoot,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaRoot is the directory uploaded files are written under.
func (s *ImageService) MediaRoot() string {
	return s.mediaRoot
}

// MaxUploadSizeBytes is the largest upload Prepare accepts.
func (s *ImageService) MaxUploadSizeBytes() int64 {
	return s.maxUploadSizeBytes
}

// Prepare checks the upload is a supported image within the size limit and
// re-encodes it. Nothing is written to disk. Rejections are *ImageError.
func (s *ImageService) Prepare(in ImageUpload) (*PreparedImage, error) {
	if len(in.Content) == 0 {
		return nil, &ImageError{Kind: models.ErrInvalidImage, Reason: "empty file"}
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, &ImageError{
			Kind:   models.ErrFileTooLarge,
			Reason: fmt.Sprintf("file too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)),
		}
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, &ImageError{Kind: models.ErrInvalidImage, Reason: "unsupported content type " + detectedType}
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, &ImageError{Kind: models.ErrInvalidImage, Reason: "file is not a readable image"}
	}
	if !isSupportedDecodedFormat(format) {
		return nil, &ImageError{Kind: models.ErrInvalidImage, Reason: "unsupported image format " + format}
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)

	encodedJPEG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	encodedWebP, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	sum := sha256.Sum256(encodedJPEG)
	return &PreparedImage{
		Hash: hex.EncodeToString(sum[:]),
		JPEG: encodedJPEG,
		WebP: encodedWebP,
	}, nil
}

// Save writes both renditions. Identical content maps to the same files.
func (s *ImageService) Save(p *PreparedImage) error {
	jpgAbs := s.absPath(p.RelJPEG())
	webpAbs := s.absPath(p.RelWebP())

	if err := writeBytesToFile(jpgAbs, p.JPEG); err != nil {
		return models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpAbs, p.WebP); err != nil {
		cleanupImageFiles([]string{jpgAbs, webpAbs})
		return models.NewInternalError(err)
	}
	return nil
}

// RemoveFiles deletes stored renditions by media-relative path. Empty paths are skipped.
func (s *ImageService) RemoveFiles(rels ...string) {
	paths := make([]string, 0, len(rels))
	for _, rel := range rels {
		if rel != "" {
			paths = append(paths, s.absPath(rel))
		}
	}
	cleanupImageFiles(paths)
}

func (s *ImageService) absPath(rel string) string {
	return filepath.Join(s.mediaRoot, filepath.FromSlash(rel))
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
