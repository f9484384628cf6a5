package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	latin1     = "1\n00:00:01,000 --> 00:00:02,000\nJe suis all\xe9 au caf\xe9 pour un caf\xe9 cr\xe8me.\n\n2\n00:00:03,000 --> 00:00:04,000\nC'est d\xe9j\xe0 l'\xe9t\xe9, \xe0 bient\xf4t \xe0 la for\xeat.\n"
	latin1Text = "1\n00:00:01,000 --> 00:00:02,000\nJe suis allé au café pour un café crème.\n\n2\n00:00:03,000 --> 00:00:04,000\nC'est déjà l'été, à bientôt à la forêt.\n"
)

const srt = "1\n00:00:01,000 --> 00:00:02,500\nCafé crème\n\n2\n00:00:03,000 --> 00:00:04,000\nÀ bientôt\n"

func TestDecode(t *testing.T) {
	utf16 := []byte{0xff, 0xfe}
	for _, r := range "1\n00:00:01,000 --> 00:00:02,000\nHello\n" {
		utf16 = append(utf16, byte(r), 0)
	}

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"utf-8", []byte(srt), srt},
		{"utf-8 with bom", append([]byte("\xef\xbb\xbf"), srt...), srt},
		{"windows-1252", []byte(latin1), latin1Text},
		{"utf-16 with bom", utf16, "1\n00:00:01,000 --> 00:00:02,000\nHello\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.input)
			if got.Text != tt.want {
				t.Errorf("Decode(%q).Text = %q, want %q (encoding %s)", tt.input, got.Text, tt.want, got.Encoding)
			}
			if got.Lossy {
				t.Errorf("Decode(%q).Lossy = true, want false", tt.input)
			}
		})
	}
}

func TestDecodeStrict(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		input    []byte
		ok       bool
	}{
		{"invalid utf-8", "utf-8", []byte("Caf\xe9"), false},
		{"utf-16 without bom", "utf-16", []byte("ab"), false},
		{"non ascii", "ascii", []byte("Caf\xe9"), false},
		{"ascii", "ascii", []byte("Cafe"), true},
		{"unknown encoding", "x-klingon", []byte("Cafe"), false},
		{"latin-1", "iso-8859-1", []byte("Caf\xe9"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeStrict(tt.input, tt.encoding)
			if (err == nil) != tt.ok {
				t.Errorf("decodeStrict(%q, %s) error = %v, want ok %v", tt.input, tt.encoding, err, tt.ok)
			}
		})
	}
}

func TestToWebVTT(t *testing.T) {
	out, skipped, err := ToWebVTT(srt)
	require.NoError(t, err)
	assert.Zero(t, skipped)

	vtt := string(out)
	assert.True(t, strings.HasPrefix(vtt, "WEBVTT"))
	assert.Contains(t, vtt, "00:00:01.000 --> 00:00:02.500")
	assert.Contains(t, vtt, "Café crème")
	assert.Contains(t, vtt, "À bientôt")

	again, _, err := ToWebVTT(vtt)
	require.NoError(t, err)
	assert.Contains(t, string(again), "00:00:03.000 --> 00:00:04.000")
}

func TestToWebVTTEmpty(t *testing.T) {
	out, skipped, err := ToWebVTT("")
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, "WEBVTT\n\n", string(out))
}

func TestToWebVTTSkipsMalformedCues(t *testing.T) {
	input := "1\r\n00:00:01,000 --> 00:00:02,000\r\nFirst\r\n\r\n" +
		"2\r\n00:00:xx,000 --> later\r\nBroken\r\n\r\n" +
		"3\r\n00:00:05,000 --> 00:00:06,000\r\nThird\r\n"

	out, skipped, err := ToWebVTT(input)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)

	vtt := string(out)
	assert.Contains(t, vtt, "First")
	assert.Contains(t, vtt, "00:00:05.000 --> 00:00:06.000")
	assert.Contains(t, vtt, "Third")
	assert.NotContains(t, vtt, "Broken")
}

func TestToWebVTTOnlyMalformed(t *testing.T) {
	out, skipped, err := ToWebVTT("1\n00:00:xx,000 --> never\nBroken\n")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "WEBVTT\n\n", string(out))
}

func TestNormalizeMalformedCue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "de.srt")
	require.NoError(t, os.WriteFile(path, []byte(srt+"\n3\n00:00:xx,000 --> never\nBroken\n"), 0644))

	tracks, err := New().NormalizeAll([]Source{{Language: "de", Path: path}}, filepath.Join(dir, "subtitles"))
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	vtt, err := os.ReadFile(tracks[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(vtt), "Café crème")
	assert.NotContains(t, string(vtt), "Broken")
}

func TestNormalizeAll(t *testing.T) {
	dir := t.TempDir()
	enPath := filepath.Join(dir, "en.srt")
	frPath := filepath.Join(dir, "fr.srt")
	require.NoError(t, os.WriteFile(enPath, []byte(srt), 0644))
	require.NoError(t, os.WriteFile(frPath, []byte(latin1), 0644))

	outDir := filepath.Join(dir, "subtitles")
	tracks, err := New().NormalizeAll([]Source{
		{Language: "en", Path: enPath},
		{Language: "fr", Path: frPath},
	}, outDir)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "en", tracks[0].Language)
	assert.Equal(t, filepath.Join(outDir, "en.vtt"), tracks[0].Path)
	assert.Equal(t, "fr", tracks[1].Language)
	assert.FileExists(t, filepath.Join(outDir, "fr_utf8.srt"))

	vtt, err := os.ReadFile(tracks[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(vtt), "café crème")
}

func TestNormalizeAllNone(t *testing.T) {
	tracks, err := New().NormalizeAll(nil, t.TempDir())
	assert.NoError(t, err)
	assert.Empty(t, tracks)
}
