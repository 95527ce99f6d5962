package cache

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/zeebo/blake3"
)

// Fingerprint prefixes. A key's fingerprint part starts with one of these so
// keys from different derivations never collide within a namespace.
const (
	perceptualPrefix = "p:"
	digestPrefix     = "b3:"
)

// ImageFingerprint returns "p:<16 hex><3 hex>": the 64-bit perceptual hash of
// an encoded image followed by its mean colour quantised to 3 bits per
// channel. Re-encodings of the same picture (different compression,
// container metadata) yield the same fingerprint. The colour digits keep
// uniform images of different colours apart, since their pHash is identical.
func ImageFingerprint(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", ErrUnsupportedImage
	}
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	r, g, b := meanColor(img)
	return fmt.Sprintf("%s%016x%x%x%x", perceptualPrefix, hash.GetHash(), r>>5, g>>5, b>>5), nil
}

// meanColor averages 8-bit channels over at most a 64x64 sampling grid.
func meanColor(img image.Image) (r, g, b uint32) {
	bounds := img.Bounds()
	stepX := max(1, bounds.Dx()/64)
	stepY := max(1, bounds.Dy()/64)
	var sr, sg, sb, n uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			sr += uint64(cr >> 8)
			sg += uint64(cg >> 8)
			sb += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	return uint32(sr / n), uint32(sg / n), uint32(sb / n)
}

// ContentKey derives a key for an image payload: "<ns>:p:<19 hex>".
func ContentKey(namespace string, payload []byte) (string, error) {
	fp, err := ImageFingerprint(payload)
	if err != nil {
		return "", err
	}
	return namespace + ":" + fp, nil
}

// DigestFingerprint returns the BLAKE3-256 digest of payload as "b3:<64 hex>".
func DigestFingerprint(payload []byte) string {
	sum := blake3.Sum256(payload)
	return digestPrefix + hex.EncodeToString(sum[:])
}

// DigestKey derives an exact key for an arbitrary payload: "<ns>:b3:<64 hex>".
func DigestKey(namespace string, payload []byte) string {
	return namespace + ":" + DigestFingerprint(payload)
}

// PathKey derives a key for a read endpoint from its route and parameter
// values, e.g. PathKey("view", "/ts-model/forecast", "12") returns
// "view:/ts-model/forecast:12".
func PathKey(namespace, path string, params ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(path)
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// CompoundKey joins fingerprints in order: "<ns>:<fp1>_<fp2>...". Changing
// any part, or their order, changes the key.
func CompoundKey(namespace string, fingerprints ...string) string {
	return namespace + ":" + strings.Join(fingerprints, "_")
}

// Namespace returns the namespace part of a derived key.
func Namespace(key string) string {
	ns, _, found := strings.Cut(key, ":")
	if !found {
		return ""
	}
	return ns
}
