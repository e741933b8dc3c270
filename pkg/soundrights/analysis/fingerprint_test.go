package analysis

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestFingerprintDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(a, []byte("same bytes"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same bytes"), 0o644))

	f := NewFingerprinter(false, nil)
	fa, err := f.Fingerprint(a)
	require.NoError(t, err)
	fb, err := f.Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.Regexp(t, hex32, fa)
	assert.Equal(t, FingerprintBytes([]byte("same bytes")), fa)
}

func TestFingerprintDiffersOnContent(t *testing.T) {
	assert.NotEqual(t, FingerprintBytes([]byte("one")), FingerprintBytes([]byte("two")))
}

func TestFingerprintKnownValue(t *testing.T) {
	// sha256("") = e3b0c44298fc1c149afbf4c8996fb924...
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb924", FingerprintBytes(nil))
}

func TestFingerprintLenientFallback(t *testing.T) {
	f := NewFingerprinter(false, nil)
	f.now = func() time.Time { return time.Unix(0, 42) }

	missing := filepath.Join(t.TempDir(), "gone.wav")
	fp, err := f.Fingerprint(missing)
	require.NoError(t, err)
	assert.Regexp(t, hex32, fp)
	assert.Equal(t, fallbackFingerprint(missing, time.Unix(0, 42)), fp)

	f.now = func() time.Time { return time.Unix(0, 43) }
	again, err := f.Fingerprint(missing)
	require.NoError(t, err)
	assert.NotEqual(t, fp, again)
}

func TestFingerprintStrict(t *testing.T) {
	f := NewFingerprinter(true, nil)
	_, err := f.Fingerprint(filepath.Join(t.TempDir(), "gone.wav"))
	assert.ErrorIs(t, err, ErrFingerprintStream)
}
