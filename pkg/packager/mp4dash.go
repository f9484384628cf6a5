package packager

import (
	"path/filepath"
	"strings"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/subtitle"
)

const (
	RoleMain      = "main"
	RoleAlternate = "alternate"

	FormatWebVTT = "webvtt"
)

// TrackSpec is one input of the mp4dash invocation.
type TrackSpec struct {
	Path     string
	Language string
	Role     string
	Format   string
}

// Arg serializes the spec in mp4dash syntax: [+opt=value,...]path.
func (t TrackSpec) Arg() string {
	var opts []string
	if t.Format != "" {
		opts = append(opts, "+format="+t.Format)
	}
	if t.Language != "" {
		opts = append(opts, "+language="+t.Language)
	}
	if t.Role != "" {
		opts = append(opts, "+role="+t.Role)
	}

	path := filepath.ToSlash(t.Path)
	if len(opts) == 0 {
		return path
	}
	return "[" + strings.Join(opts, ",") + "]" + path
}

// Fragment is a fragmented audio rendition.
type Fragment struct {
	Language string
	Path     string
}

// BuildTrackSpecs orders video, then audio (first is main), then subtitles.
func BuildTrackSpecs(videos []string, audios []Fragment, subtitles []subtitle.Track) []TrackSpec {
	specs := make([]TrackSpec, 0, len(videos)+len(audios)+len(subtitles))

	for _, path := range videos {
		specs = append(specs, TrackSpec{Path: path})
	}

	for i, a := range audios {
		role := RoleAlternate
		if i == 0 {
			role = RoleMain
		}
		specs = append(specs, TrackSpec{Path: a.Path, Language: a.Language, Role: role})
	}

	for _, s := range subtitles {
		specs = append(specs, TrackSpec{Path: s.Path, Language: s.Language, Format: FormatWebVTT})
	}

	return specs
}

// DashArgs builds a single mp4dash pass emitting on-demand DASH and HLS under cbcs,
// with Marlin, Widevine, FairPlay and PlayReady signalling.
func DashArgs(outDir string, keys KeySet, playReadyLAURL string, specs []TrackSpec) []string {
	args := []string{
		"--profiles=on-demand",
		"--output", filepath.ToSlash(outDir),
		"--force",
		"--mpd-name", "manifest.mpd",
		"--marlin",
		"--encryption-cenc-scheme=cbcs",
		"--encryption-args=--global-option mpeg-cenc.piff-compatible:true",
		"--encryption-key=" + keys.KeyID + ":" + keys.Key + ":" + keys.CEK,
		"--widevine-header=provider:intertrust.ki#content_id:" + keys.KeyID + "#protection_scheme:cbcs",
		"--hls",
		"--fairplay-key-uri=skd://" + keys.KeyID,
		"--playready-version=4.3",
		"--playready",
		"--playready-header=LA_URL:" + playReadyLAURL,
		"--hls-master-playlist-name=manifest.m3u8",
	}

	for _, spec := range specs {
		args = append(args, spec.Arg())
	}

	return args
}
