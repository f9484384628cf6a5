package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/runner"
)

type MediaData struct {
	FormatName []string
	Duration   time.Duration
	BitRate    int64

	Video *VideoData
	Audio []AudioData
}

func (m *MediaData) HasAudio() bool {
	return len(m.Audio) > 0
}

type VideoData struct {
	CodecName string
	Profile   string
	PixFmt    string
	Level     int
	Width     int
	Height    int
	Duration  time.Duration
}

func (v *VideoData) Resolution() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

type AudioData struct {
	CodecName string
	BitRate   float64
	Duration  time.Duration
}

type ProberCtx struct {
	logger zerolog.Logger
	binary string
	runner runner.Runner
}

func New(ffprobeBinary string, r runner.Runner) *ProberCtx {
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}

	return &ProberCtx{
		logger: log.With().Str("module", "probe").Logger(),
		binary: ffprobeBinary,
		runner: r,
	}
}

func (p *ProberCtx) Media(ctx context.Context, inputFilePath string) (*MediaData, error) {
	args := []string{
		"-v", "error", // Hide debug information
		"-show_format",  // Show container information
		"-show_streams", // Show codec information
		"-of", "json",
		inputFilePath,
	}

	stdout, err := p.runner.Run(ctx, runner.Command{Name: p.binary, Args: args})
	if err != nil {
		return nil, err
	}

	data, err := Parse(stdout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputFilePath, err)
	}

	if data.Video == nil {
		p.logger.Debug().Str("path", inputFilePath).Msg("no video stream found")
	}

	return data, nil
}

// Parse reads ffprobe -show_format -show_streams JSON output.
func Parse(stdout []byte) (*MediaData, error) {
	out := struct {
		Streams []struct {
			CodecName string `json:"codec_name"`
			CodecType string `json:"codec_type"`
			Duration  string `json:"duration"`

			// For video streams.
			Width   int    `json:"width"`
			Height  int    `json:"height"`
			Profile string `json:"profile"`
			PixFmt  string `json:"pix_fmt"`
			Level   int    `json:"level"`

			// For audio streams.
			BitRate string `json:"bit_rate"`
		} `json:"streams"`
		Format struct {
			FormatName string `json:"format_name"`
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
		} `json:"format"`
	}{}

	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, fmt.Errorf("unable to parse ffprobe output: %w", err)
	}

	data := MediaData{}
	for _, stream := range out.Streams {
		duration, err := parseSeconds(stream.Duration)
		if err != nil {
			return nil, fmt.Errorf("unable to parse stream duration: %w", err)
		}

		switch stream.CodecType {
		case "video":
			// first video stream wins, cover art comes later
			if data.Video != nil {
				continue
			}

			data.Video = &VideoData{
				CodecName: stream.CodecName,
				Profile:   stream.Profile,
				PixFmt:    stream.PixFmt,
				Level:     stream.Level,
				Width:     stream.Width,
				Height:    stream.Height,
				Duration:  duration,
			}
		case "audio":
			var bitRate float64
			if stream.BitRate != "" && stream.BitRate != "N/A" {
				bitRate, err = strconv.ParseFloat(stream.BitRate, 64)
				if err != nil {
					return nil, fmt.Errorf("unable to parse audio stream bitrate: %w", err)
				}
			}

			data.Audio = append(data.Audio, AudioData{
				CodecName: stream.CodecName,
				BitRate:   bitRate,
				Duration:  duration,
			})
		}
	}

	if out.Format.FormatName != "" {
		data.FormatName = strings.Split(out.Format.FormatName, ",")
	}

	var err error
	data.Duration, err = parseSeconds(out.Format.Duration)
	if err != nil {
		return nil, fmt.Errorf("unable to parse format duration: %w", err)
	}

	if out.Format.BitRate != "" && out.Format.BitRate != "N/A" {
		data.BitRate, err = strconv.ParseInt(out.Format.BitRate, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse format bitrate: %w", err)
		}
	}

	return &data, nil
}

func parseSeconds(s string) (time.Duration, error) {
	if s == "" || s == "N/A" {
		return 0, nil
	}
	return time.ParseDuration(s + "s")
}
