package testsupport

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// WriteImage writes a w x h PNG with a deterministic gradient to path.
func WriteImage(t testing.TB, path string, w, h, seed int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{
				R: uint8((x*7 + seed) % 256),
				G: uint8((y*11 + seed*3) % 256),
				B: uint8((x + y + seed*5) % 256),
				A: 255,
			})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// WriteFrames writes count frames named 0.png..count-1.png into dir, the
// layout produced by frame extraction.
func WriteFrames(t testing.TB, dir string, count, w, h int) {
	t.Helper()
	for i := range count {
		WriteImage(t, filepath.Join(dir, fmt.Sprintf("%d.png", i)), w, h, i)
	}
}

var (
	keyOnce sync.Once
	keyPEM  [2][]byte
	keyErr  error
)

// RSAKeyFiles writes a 2048-bit key pair (PKCS#8 private, PKIX public) into a
// temp directory and returns the two paths. The key is generated once per test
// binary.
func RSAKeyFiles(t testing.TB) (privatePath, publicPath string) {
	t.Helper()

	keyOnce.Do(func() {
		var priv *rsa.PrivateKey
		priv, keyErr = rsa.GenerateKey(rand.Reader, 2048)
		if keyErr != nil {
			return
		}
		keyPEM, keyErr = encodeKeyPair(priv)
	})
	if keyErr != nil {
		t.Fatalf("generate rsa key: %v", keyErr)
	}
	return writeKeyPair(t, keyPEM)
}

// OtherRSAKeyFiles writes a freshly generated key pair that does not match
// RSAKeyFiles.
func OtherRSAKeyFiles(t testing.TB) (privatePath, publicPath string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	pemPair, err := encodeKeyPair(priv)
	if err != nil {
		t.Fatalf("encode rsa key: %v", err)
	}
	return writeKeyPair(t, pemPair)
}

func encodeKeyPair(priv *rsa.PrivateKey) ([2][]byte, error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return [2][]byte{}, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return [2][]byte{}, err
	}
	return [2][]byte{
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
	}, nil
}

func writeKeyPair(t testing.TB, pair [2][]byte) (string, string) {
	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")
	if err := os.WriteFile(privatePath, pair[0], 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(publicPath, pair[1], 0o644); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	return privatePath, publicPath
}
