package helper

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "github.com/mat/besticon/ico"
)

const (
	MaxAttachmentDimension = 1600
	MaxDecompressedSizeMB  = 50
	MaxDecompressedSize    = MaxDecompressedSizeMB * 1024 * 1024
)

// PrepareAttachment decode gambar attachment, resize kalau kebesaran, dan
// re-encode ke JPEG supaya aman di-upload sebagai image message.
// Mengembalikan bytes hasil encode plus mimetype-nya.
func PrepareAttachment(data []byte) ([]byte, string, error) {
	img, err := decodeAttachment(data)
	if err != nil {
		return nil, "", err
	}

	// Cegah decompression bomb (RGBA = 4 byte per pixel)
	bounds := img.Bounds()
	if bounds.Dx()*bounds.Dy()*4 > MaxDecompressedSize {
		return nil, "", fmt.Errorf("attachment too large when decompressed")
	}

	if bounds.Dx() > MaxAttachmentDimension || bounds.Dy() > MaxAttachmentDimension {
		img = imaging.Fit(img, MaxAttachmentDimension, MaxAttachmentDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, "", fmt.Errorf("failed to encode attachment: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func decodeAttachment(data []byte) (image.Image, error) {
	// webp tidak terdaftar di image.Decode, coba eksplisit dulu lewat magic RIFF
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("RIFF")) {
		if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
			return img, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported image format or corrupted file")
	}
	return img, nil
}
