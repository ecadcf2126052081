// Package stego adapts the least-significant-bit primitive from
// github.com/auyer/steganography into the hide/reveal contract used by the
// pipelines.
//
// Every payload is framed as magic | adler32(payload) | payload before it is
// embedded, which lets Reveal tell an unmodified frame (a reveal miss) apart
// from a carrier without decoding noise as data.
package stego

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/auyer/steganography"
	_ "golang.org/x/image/bmp"

	"vidsteg/internal/services"
)

var magic = [4]byte{'V', 'S', 'G', '1'}

const (
	frameOverhead = len(magic) + 4
	// lengthHeader is the size prefix the LSB primitive writes before the
	// message. MaxEncodeSize already excludes one prefix, but the encoder
	// checks the message plus a prefix against it again.
	lengthHeader = 4
)

// Capacity returns the largest payload, in bytes, that Hide can embed in img.
func Capacity(img image.Image) int {
	raw := int(steganography.MaxEncodeSize(img)) - lengthHeader - frameOverhead
	return max(raw, 0)
}

// Hide embeds payload into img and returns the carrier encoded as PNG.
func Hide(img image.Image, payload []byte) ([]byte, error) {
	if capacity := Capacity(img); len(payload) > capacity {
		return nil, services.Wrap(services.ErrValidation, "stego", "hide",
			fmt.Sprintf("payload of %d bytes exceeds carrier capacity of %d bytes", len(payload), capacity), nil)
	}
	framed := make([]byte, 0, frameOverhead+len(payload))
	framed = append(framed, magic[:]...)
	framed = binary.BigEndian.AppendUint32(framed, adler32.Checksum(payload))
	framed = append(framed, payload...)

	var out bytes.Buffer
	if err := steganography.Encode(&out, img, framed); err != nil {
		return nil, fmt.Errorf("embed payload: %w", err)
	}
	return out.Bytes(), nil
}

// Reveal extracts a payload previously embedded by Hide. found is false when
// img carries no payload.
func Reveal(img image.Image) (payload []byte, found bool) {
	size := steganography.GetMessageSizeFromImage(img)
	if int64(size) < int64(frameOverhead) || int64(size) > int64(Capacity(img)+frameOverhead) {
		return nil, false
	}
	framed := steganography.Decode(size, img)
	if len(framed) != int(size) || !bytes.Equal(framed[:len(magic)], magic[:]) {
		return nil, false
	}
	sum := binary.BigEndian.Uint32(framed[len(magic):frameOverhead])
	payload = framed[frameOverhead:]
	if adler32.Checksum(payload) != sum {
		return nil, false
	}
	return payload, true
}

// HideFile embeds payload into the image at src and writes a PNG to dst. src
// and dst may be the same path.
func HideFile(src, dst string, payload string) error {
	img, err := Load(src)
	if err != nil {
		return err
	}
	data, err := Hide(img, []byte(payload))
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write carrier %s: %w", dst, err)
	}
	return nil
}

// RevealFile loads the image at path and reveals its payload. A missing
// payload is reported through found, not as an error.
func RevealFile(path string) (payload string, found bool, err error) {
	img, err := Load(path)
	if err != nil {
		return "", false, err
	}
	data, ok := Reveal(img)
	if !ok {
		return "", false, nil
	}
	return string(data), true, nil
}

// Load decodes a PNG, JPEG or BMP image from path.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "stego", "load", fmt.Sprintf("decode image %s", path), err)
	}
	return img, nil
}
