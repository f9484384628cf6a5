package packager

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/subtitle"
	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/transcode"
)

// OriginalLanguage tags audio extracted from the video when no track was supplied.
const OriginalLanguage = "original"

func (p *PackagerCtx) packagePlain(ctx context.Context, in Input) (*Output, error) {
	hlsDir := filepath.Join(in.WorkDir, "hls")
	if err := resetDir(hlsDir); err != nil {
		return nil, job.Wrap(job.ErrPackaging, "package", "reset hls dir", err)
	}

	master := &Master{}

	//
	// audio
	//

	if len(in.Audios) > 0 {
		for _, a := range in.Audios {
			uri, err := p.segmentAudio(ctx, hlsDir, a.Language, a.Path, audioCodecArgs(a.Path))
			if err != nil {
				return nil, err
			}
			master.AddAudio(a.Language, uri)
		}
	} else {
		source, ok := p.firstWithAudio(ctx, in.Videos)
		if ok {
			uri, err := p.segmentAudio(ctx, hlsDir, OriginalLanguage, source, []string{"-vn", "-c:a", "aac", "-b:a", "128k"})
			if err != nil {
				return nil, err
			}
			master.AddAudio(OriginalLanguage, uri)
		} else {
			p.logger.Warn().Msg("no audio tracks provided and no audio found in renditions")
		}
	}

	//
	// subtitles
	//

	for _, s := range in.Subtitles {
		uri, err := p.segmentSubtitles(ctx, hlsDir, s, in)
		if err != nil {
			return nil, err
		}
		master.AddSubtitles(s.Language, uri)
	}

	//
	// video
	//

	for idx, v := range in.Videos {
		dir := filepath.Join(hlsDir, "video", fmt.Sprintf("variant_%d", idx))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, job.Wrap(job.ErrPackaging, "package", "create variant dir", err)
		}

		resolution, bitrate, codecs := p.variantInfo(ctx, v)

		args := append([]string{"-y", "-i", v.Path, "-c:v", "copy", "-an"}, p.hlsArgs(true)...)
		args = append(args, filepath.Join(dir, "playlist.m3u8"))
		if err := p.run(ctx, p.config.FFmpegBinary, args...); err != nil {
			return nil, job.Wrap(job.ErrPackaging, "package", "segment video "+resolution, err)
		}

		master.AddVariant(path.Join("video", fmt.Sprintf("variant_%d", idx), "playlist.m3u8"), Bandwidth(bitrate), resolution, codecs)
		p.logger.Info().Str("resolution", resolution).Int("variant", idx).Msg("generated video hls playlist")
	}

	//
	// master
	//

	masterPath := filepath.Join(hlsDir, MasterPlaylistName)
	if err := os.WriteFile(masterPath, []byte(master.String()), 0644); err != nil {
		return nil, job.Wrap(job.ErrPackaging, "package", "write master playlist", err)
	}

	p.logger.Info().
		Int("audio", len(master.Audio)).
		Int("subtitles", len(master.Subtitles)).
		Int("variants", len(master.Video)).
		Str("path", masterPath).
		Msg("created hls master playlist")

	return &Output{
		Mode:   ModePlain,
		Dir:    hlsDir,
		Master: masterPath,
	}, nil
}

func (p *PackagerCtx) hlsArgs(mpegts bool) []string {
	args := []string{
		"-f", "hls",
		"-hls_time", strconv.Itoa(p.config.SegmentSeconds),
		"-hls_list_size", "0",
		"-hls_playlist_type", "vod",
	}
	if mpegts {
		args = append(args, "-hls_segment_type", "mpegts")
	}
	return args
}

// audioCodecArgs copies AAC that already sits in MP4 and re-encodes anything else.
func audioCodecArgs(input string) []string {
	if strings.HasSuffix(input, ".mp4") {
		return []string{"-c:a", "copy"}
	}
	return []string{"-c:a", "aac", "-b:a", "128k"}
}

func (p *PackagerCtx) segmentAudio(ctx context.Context, hlsDir, lang, input string, codecArgs []string) (string, error) {
	dir := filepath.Join(hlsDir, "audio", lang)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", job.Wrap(job.ErrPackaging, "package", "create audio dir", err)
	}

	args := append([]string{"-y", "-i", input}, codecArgs...)
	args = append(args, p.hlsArgs(true)...)
	args = append(args, filepath.Join(dir, "playlist.m3u8"))

	if err := p.run(ctx, p.config.FFmpegBinary, args...); err != nil {
		return "", job.Wrap(job.ErrPackaging, "package", "segment audio "+lang, err)
	}

	p.logger.Info().Str("language", lang).Str("source", input).Msg("generated audio hls playlist")
	return path.Join("audio", lang, "playlist.m3u8"), nil
}

func (p *PackagerCtx) firstWithAudio(ctx context.Context, videos []transcode.Rendition) (string, bool) {
	for _, v := range videos {
		media, err := p.prober.Media(ctx, v.Path)
		if err != nil {
			p.logger.Warn().Err(err).Str("path", v.Path).Msg("unable to probe audio streams")
			continue
		}
		if media.HasAudio() {
			return v.Path, true
		}
	}
	return "", false
}

// segmentSubtitles muxes the track with a silent audio bed of the full duration, then
// replaces the generated playlist with one whose timing follows from the duration.
func (p *PackagerCtx) segmentSubtitles(ctx context.Context, hlsDir string, s subtitle.Track, in Input) (string, error) {
	name := "sub_" + s.Language
	dir := filepath.Join(hlsDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", job.Wrap(job.ErrPackaging, "package", "create subtitle dir", err)
	}

	playlist := filepath.Join(dir, "playlist.m3u8")
	seconds := strconv.FormatFloat(in.Duration.Seconds(), 'f', -1, 64)

	args := []string{
		"-y",
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=48000:duration=" + seconds,
		"-i", s.Path,
		"-map", "0:a", "-map", "1:s",
		"-c:a", "aac", "-b:a", "128k",
		"-c:s", "webvtt",
		"-copyts", "-start_at_zero",
	}
	args = append(args, p.hlsArgs(false)...)
	args = append(args, playlist)

	if err := p.run(ctx, p.config.FFmpegBinary, args...); err != nil {
		return "", job.Wrap(job.ErrPackaging, "package", "segment subtitles "+s.Language, err)
	}

	content := SubtitlePlaylist(in.Duration, p.config.SegmentSeconds)
	if err := os.WriteFile(playlist, []byte(content), 0644); err != nil {
		return "", job.Wrap(job.ErrPackaging, "package", "rewrite subtitle playlist", err)
	}

	p.logger.Info().Str("language", s.Language).Msg("generated subtitle hls playlist")
	return path.Join(name, "playlist.m3u8"), nil
}

// variantInfo probes a rendition, falling back to fixed defaults when probing fails.
func (p *PackagerCtx) variantInfo(ctx context.Context, v transcode.Rendition) (resolution string, bitrate int, codecs string) {
	resolution, bitrate, codecs = DefaultResolution, DefaultBitrate, DefaultCodecs

	media, err := p.prober.Media(ctx, v.Path)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", v.Path).Msg("unable to probe variant, using defaults")
		return
	}

	if media.Video != nil && media.Video.Width > 0 && media.Video.Height > 0 {
		resolution = media.Video.Resolution()
	}
	if media.BitRate > 0 {
		bitrate = int(media.BitRate)
	}
	codecs = CodecTag(media.Video)
	return
}
