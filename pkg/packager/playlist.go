package packager

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
)

const (
	AudioGroupID    = "audio"
	SubtitleGroupID = "subs"

	DefaultCodecs     = "avc1.64001f"
	DefaultResolution = "1920x1080"
	DefaultBitrate    = 3000000
)

type MediaType string

const (
	MediaAudio     MediaType = "AUDIO"
	MediaSubtitles MediaType = "SUBTITLES"
	MediaVideo     MediaType = "VIDEO"
)

// ManifestEntry is one line group of the master playlist.
type ManifestEntry struct {
	Type       MediaType
	Language   string
	URI        string
	Bandwidth  int
	Resolution string
	Codecs     string
	Default    bool
}

// Master holds the entries of a master playlist in render order.
type Master struct {
	Audio     []ManifestEntry
	Subtitles []ManifestEntry
	Video     []ManifestEntry
}

func (m *Master) AddAudio(lang, uri string) {
	m.Audio = append(m.Audio, ManifestEntry{
		Type:     MediaAudio,
		Language: lang,
		URI:      uri,
		Default:  len(m.Audio) == 0,
	})
}

func (m *Master) AddSubtitles(lang, uri string) {
	m.Subtitles = append(m.Subtitles, ManifestEntry{
		Type:     MediaSubtitles,
		Language: lang,
		URI:      uri,
		Default:  len(m.Subtitles) == 0,
	})
}

func (m *Master) AddVariant(uri string, bandwidth int, resolution, codecs string) {
	m.Video = append(m.Video, ManifestEntry{
		Type:       MediaVideo,
		URI:        uri,
		Bandwidth:  bandwidth,
		Resolution: resolution,
		Codecs:     codecs,
	})
}

// String renders the playlist. Group attributes only appear on variants when the
// group has at least one member.
func (m *Master) String() string {
	playlist := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:6",
		"#EXT-X-INDEPENDENT-SEGMENTS",
	}

	for _, e := range m.Audio {
		playlist = append(playlist, fmt.Sprintf(
			`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="%s",LANGUAGE="%s",NAME="%s",DEFAULT=%s,AUTOSELECT=YES,URI="%s"`,
			AudioGroupID, e.Language, DisplayName(e.Language), yesNo(e.Default), e.URI,
		))
	}

	for _, e := range m.Subtitles {
		playlist = append(playlist, fmt.Sprintf(
			`#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="%s",NAME="%s",LANGUAGE="%s",DEFAULT=%s,AUTOSELECT=YES,URI="%s"`,
			SubtitleGroupID, DisplayName(e.Language), e.Language, yesNo(e.Default), e.URI,
		))
	}

	for _, e := range m.Video {
		streamInf := fmt.Sprintf(
			`#EXT-X-STREAM-INF:BANDWIDTH=%d,AVERAGE-BANDWIDTH=%d,RESOLUTION=%s,CODECS="%s"`,
			e.Bandwidth, AverageBandwidth(e.Bandwidth), e.Resolution, e.Codecs,
		)
		if len(m.Audio) > 0 {
			streamInf += fmt.Sprintf(`,AUDIO="%s"`, AudioGroupID)
		}
		if len(m.Subtitles) > 0 {
			streamInf += fmt.Sprintf(`,SUBTITLES="%s"`, SubtitleGroupID)
		}
		playlist = append(playlist, streamInf, e.URI)
	}

	return strings.Join(playlist, "\n") + "\n"
}

// SubtitlePlaylist lists ceil(duration/segment) WebVTT segments, the last one
// carrying the remainder.
func SubtitlePlaylist(duration time.Duration, segmentSeconds int) string {
	playlist := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:6",
		fmt.Sprintf("#EXT-X-TARGETDURATION:%d", segmentSeconds),
		"#EXT-X-MEDIA-SEQUENCE:0",
		"#EXT-X-PLAYLIST-TYPE:VOD",
	}

	total := duration.Seconds()
	segment := float64(segmentSeconds)
	if total > 0 && segment > 0 {
		count := int(math.Ceil(total / segment))
		for i := 0; i < count; i++ {
			length := math.Min(segment, total-float64(i)*segment)
			playlist = append(playlist,
				fmt.Sprintf("#EXTINF:%.6f,", length),
				fmt.Sprintf("playlist%d.vtt", i),
			)
		}
	}

	playlist = append(playlist, "#EXT-X-ENDLIST")
	return strings.Join(playlist, "\n") + "\n"
}

// Bandwidth adds 20% headroom for segmentation overhead.
func Bandwidth(bitrate int) int {
	return bitrate * 6 / 5
}

// AverageBandwidth is 80% of the peak.
func AverageBandwidth(bandwidth int) int {
	return bandwidth * 4 / 5
}

var avcProfiles = map[string]string{
	"baseline":             "4200",
	"constrained baseline": "4200",
	"main":                 "4d00",
	"high":                 "6400",
}

// CodecTag builds the RFC 6381 codec string for an H.264 stream.
func CodecTag(video *probe.VideoData) string {
	if video == nil || video.CodecName != "h264" || video.Level <= 0 {
		return DefaultCodecs
	}

	profile, ok := avcProfiles[strings.ToLower(video.Profile)]
	if !ok {
		profile = avcProfiles["high"]
	}

	return fmt.Sprintf("avc1.%s%02x", profile, video.Level)
}

// DisplayName is the NAME attribute for a language tag.
func DisplayName(lang string) string {
	// a Caser keeps state, one per call
	return cases.Title(language.Und).String(lang)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
