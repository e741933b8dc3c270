package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"song.mp3", "song.mp3"},
		{"../../etc/passwd", "passwd"},
		{`C:\music\My Song (live).wav`, "My_Song__live_.wav"},
		{"", "upload"},
		{"..", "upload"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}

func TestUniqueTempNameIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := UniqueTempName("analysis", "a b.wav")
		assert.True(t, strings.HasPrefix(name, "analysis_"))
		assert.True(t, strings.HasSuffix(name, "_a_b.wav"))
		assert.False(t, seen[name], "duplicate temp name %s", name)
		seen[name] = true
	}
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "track", FileStem("/tmp/dir/track.flac"))
	assert.Equal(t, "noext", FileStem("noext"))
}

func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	assert.True(t, IsUUID(id))
	assert.NotEqual(t, id, GenerateUUID())
	assert.False(t, IsUUID("not-a-uuid"))
}
