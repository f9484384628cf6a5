package packager

import (
	"strings"
	"testing"
	"time"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
)

func TestSubtitlePlaylist(t *testing.T) {
	got := SubtitlePlaylist(20*time.Second, 6)
	want := `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-PLAYLIST-TYPE:VOD
#EXTINF:6.000000,
playlist0.vtt
#EXTINF:6.000000,
playlist1.vtt
#EXTINF:6.000000,
playlist2.vtt
#EXTINF:2.000000,
playlist3.vtt
#EXT-X-ENDLIST
`
	if got != want {
		t.Errorf("SubtitlePlaylist(20s, 6) = %q, want %q", got, want)
	}
}

func TestSubtitlePlaylistSegmentCount(t *testing.T) {
	tests := []struct {
		duration time.Duration
		segments int
		last     string
	}{
		{18 * time.Second, 3, "#EXTINF:6.000000,"},
		{20500 * time.Millisecond, 4, "#EXTINF:2.500000,"},
		{4 * time.Second, 1, "#EXTINF:4.000000,"},
		{0, 0, ""},
	}
	for _, tt := range tests {
		got := SubtitlePlaylist(tt.duration, 6)
		if n := strings.Count(got, "#EXTINF:"); n != tt.segments {
			t.Errorf("SubtitlePlaylist(%v) segments = %v, want %v", tt.duration, n, tt.segments)
		}
		if tt.last == "" {
			continue
		}
		lines := strings.Split(strings.TrimSpace(got), "\n")
		if last := lines[len(lines)-3]; last != tt.last {
			t.Errorf("SubtitlePlaylist(%v) last = %v, want %v", tt.duration, last, tt.last)
		}
	}
}

func TestBandwidth(t *testing.T) {
	if got := Bandwidth(3000000); got != 3600000 {
		t.Errorf("Bandwidth(3000000) = %v, want %v", got, 3600000)
	}
	if got := AverageBandwidth(3600000); got != 2880000 {
		t.Errorf("AverageBandwidth(3600000) = %v, want %v", got, 2880000)
	}
}

func TestMasterPlaylist(t *testing.T) {
	m := &Master{}
	m.AddAudio("en", "audio/en/playlist.m3u8")
	m.AddAudio("hi", "audio/hi/playlist.m3u8")
	m.AddSubtitles("en", "sub_en/playlist.m3u8")
	m.AddVariant("video/variant_0/playlist.m3u8", Bandwidth(3000000), "1920x1080", "avc1.640028")

	got := m.String()
	want := `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-INDEPENDENT-SEGMENTS
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",LANGUAGE="en",NAME="En",DEFAULT=YES,AUTOSELECT=YES,URI="audio/en/playlist.m3u8"
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",LANGUAGE="hi",NAME="Hi",DEFAULT=NO,AUTOSELECT=YES,URI="audio/hi/playlist.m3u8"
#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="subs",NAME="En",LANGUAGE="en",DEFAULT=YES,AUTOSELECT=YES,URI="sub_en/playlist.m3u8"
#EXT-X-STREAM-INF:BANDWIDTH=3600000,AVERAGE-BANDWIDTH=2880000,RESOLUTION=1920x1080,CODECS="avc1.640028",AUDIO="audio",SUBTITLES="subs"
video/variant_0/playlist.m3u8
`
	if got != want {
		t.Errorf("Master.String() = %q, want %q", got, want)
	}
}

func TestMasterPlaylistGroupReferences(t *testing.T) {
	tests := []struct {
		name      string
		audio     bool
		subtitles bool
	}{
		{"no groups", false, false},
		{"audio only", true, false},
		{"subtitles only", false, true},
		{"both", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Master{}
			if tt.audio {
				m.AddAudio("original", "audio/original/playlist.m3u8")
			}
			if tt.subtitles {
				m.AddSubtitles("en", "sub_en/playlist.m3u8")
				m.AddSubtitles("fr", "sub_fr/playlist.m3u8")
			}
			m.AddVariant("video/variant_0/playlist.m3u8", 1200, "640x360", DefaultCodecs)
			m.AddVariant("video/variant_1/playlist.m3u8", 2400, "854x480", DefaultCodecs)

			got := m.String()
			checkGroup(t, got, "audio", `GROUP-ID="audio"`, `AUDIO="audio"`)
			checkGroup(t, got, "subs", `GROUP-ID="subs"`, `SUBTITLES="subs"`)
		})
	}
}

// checkGroup fails when variants reference a group that has no media lines, and
// when a non-empty group has other than exactly one default.
func checkGroup(t *testing.T, playlist, group, declared, reference string) {
	t.Helper()

	var members, defaults int
	for _, line := range strings.Split(playlist, "\n") {
		if strings.HasPrefix(line, "#EXT-X-MEDIA:") && strings.Contains(line, declared) {
			members++
			if strings.Contains(line, "DEFAULT=YES") {
				defaults++
			}
		}
		if strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			if members == 0 && strings.Contains(line, reference) {
				t.Errorf("variant references empty group %s: %s", group, line)
			}
			if members > 0 && !strings.Contains(line, reference) {
				t.Errorf("variant misses group %s: %s", group, line)
			}
		}
	}

	if members > 0 && defaults != 1 {
		t.Errorf("group %s has %d defaults, want 1", group, defaults)
	}
}

func TestCodecTag(t *testing.T) {
	tests := []struct {
		video *probe.VideoData
		want  string
	}{
		{nil, "avc1.64001f"},
		{&probe.VideoData{CodecName: "hevc", Profile: "Main", Level: 120}, "avc1.64001f"},
		{&probe.VideoData{CodecName: "h264", Profile: "High", Level: 40}, "avc1.640028"},
		{&probe.VideoData{CodecName: "h264", Profile: "Main", Level: 31}, "avc1.4d001f"},
		{&probe.VideoData{CodecName: "h264", Profile: "Constrained Baseline", Level: 30}, "avc1.42001e"},
		{&probe.VideoData{CodecName: "h264", Profile: "High 4:4:4 Predictive", Level: 51}, "avc1.640033"},
		{&probe.VideoData{CodecName: "h264", Profile: "High", Level: -99}, "avc1.64001f"},
	}
	for _, tt := range tests {
		if got := CodecTag(tt.video); got != tt.want {
			t.Errorf("CodecTag(%+v) = %v, want %v", tt.video, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"en":       "En",
		"original": "Original",
		"HI":       "Hi",
	}
	for in, want := range tests {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}
