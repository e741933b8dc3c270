package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/soundrights/soundrights/pkg/models"
)

// ErrFingerprintStream is returned in strict mode when the file cannot be hashed.
var ErrFingerprintStream = errors.New("fingerprint stream error")

// Fingerprinter derives content-addressable identifiers for audio files.
//
// In the default lenient mode a read failure yields a path and time derived
// identifier instead of an error. That identifier is not reproducible, so two
// uploads of the same bytes that both hit the fallback will not exact-match.
// Strict mode returns ErrFingerprintStream instead.
type Fingerprinter struct {
	Strict bool
	log    Logger
	now    func() time.Time
}

func NewFingerprinter(strict bool, log Logger) *Fingerprinter {
	if log == nil {
		log = nopLogger{}
	}
	return &Fingerprinter{Strict: strict, log: log, now: time.Now}
}

// Fingerprint hashes the file at path with SHA-256 and returns the first 32 hex chars.
func (f *Fingerprinter) Fingerprint(path string) (string, error) {
	fp, err := fingerprintFile(path)
	if err == nil {
		return fp, nil
	}
	if f.Strict {
		return "", fmt.Errorf("%w: %v", ErrFingerprintStream, err)
	}
	f.log.Warnf("Fingerprint stream failed for %s, using non-content fallback: %v", path, err)
	return fallbackFingerprint(path, f.now()), nil
}

// FingerprintBytes is the in-memory form of Fingerprint's primary path.
func FingerprintBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:models.FingerprintLength]
}

func fingerprintFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:models.FingerprintLength], nil
}

func fallbackFingerprint(path string, t time.Time) string {
	seed := []byte(path + "|" + strconv.FormatInt(t.UnixNano(), 10))
	return fmt.Sprintf("%016x%016x", xxhash.Checksum64S(seed, 0), xxhash.Checksum64S(seed, 1))
}
