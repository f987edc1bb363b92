// Package attachment loads local images and encodes them as data URIs for
// multimodal prompts.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/palaver/pkg/transcript"
)

// MaxSize is the largest image accepted.
const MaxSize = 20 << 20

const (
	MediaPNG  = "image/png"
	MediaJPEG = "image/jpeg"
)

var (
	// ErrUnsupported is returned for anything other than PNG or JPEG.
	ErrUnsupported = errors.New("unsupported image type: only PNG and JPEG are accepted")

	// ErrTooLarge is returned for images over MaxSize.
	ErrTooLarge = fmt.Errorf("image exceeds %d bytes", MaxSize)
)

var extensions = map[string]string{
	".png":  MediaPNG,
	".jpg":  MediaJPEG,
	".jpeg": MediaJPEG,
}

// Image is an encoded image ready to send.
type Image struct {
	// Name is the file's base name, shown next to the message.
	Name      string
	MediaType string
	DataURI   string
}

// Ref returns the transcript reference for the image.
func (i *Image) Ref() *transcript.Image {
	if i == nil {
		return nil
	}
	return &transcript.Image{Name: i.Name, URL: i.DataURI}
}

// Load reads and encodes the image at path.
func Load(path string) (*Image, error) {
	want, ok := extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}

	img, err := Encode(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if img.MediaType != want {
		return nil, fmt.Errorf("%s: extension says %s but content is %s: %w", path, want, img.MediaType, ErrUnsupported)
	}
	return img, nil
}

// Encode sniffs data and wraps it in a data URI.
func Encode(name string, data []byte) (*Image, error) {
	mediaType := http.DetectContentType(data)
	if mediaType != MediaPNG && mediaType != MediaJPEG {
		return nil, ErrUnsupported
	}

	return &Image{
		Name:      name,
		MediaType: mediaType,
		DataURI:   "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// ValidateURL accepts PNG/JPEG data URIs and http(s) URLs.
func ValidateURL(s string) error {
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return errors.New("malformed data URI")
		}
		if meta != MediaPNG+";base64" && meta != MediaJPEG+";base64" {
			return ErrUnsupported
		}
		if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
			return fmt.Errorf("malformed data URI payload: %w", err)
		}
		return nil
	}

	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image must be a data URI or http(s) URL")
	}
	return nil
}
