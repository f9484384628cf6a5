package transcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/probe"
)

type Params struct {
	Profile string
	PixFmt  string
}

// SelectParams picks the H.264 profile for a source. 4:2:2 or high bit depth input
// needs the high profile, output is always 8-bit 4:2:0.
func SelectParams(video *probe.VideoData) Params {
	params := Params{
		Profile: "main",
		PixFmt:  "yuv420p",
	}

	if video == nil {
		return params
	}

	pixFmt := strings.ToLower(video.PixFmt)
	profile := strings.ToLower(video.Profile)
	if is422(pixFmt) || BitDepth(pixFmt) > 8 || strings.Contains(profile, "4:2:2") || profileDepth(profile) > 8 {
		params.Profile = "high"
	}

	return params
}

// packed and semi-planar formats whose name does not end in the bit depth
var packedFormats = map[string]struct {
	depth     int
	chroma422 bool
}{
	"nv16":    {8, true},
	"nv20":    {10, true},
	"p010":    {10, false},
	"p016":    {16, false},
	"p210":    {10, true},
	"p216":    {16, true},
	"p410":    {10, false},
	"p416":    {16, false},
	"y210":    {10, true},
	"rgb48":   {16, false},
	"bgr48":   {16, false},
	"rgba64":  {16, false},
	"bgra64":  {16, false},
	"x2rgb10": {10, false},
	"x2bgr10": {10, false},
}

func baseFormat(pixFmt string) string {
	for _, endian := range []string{"le", "be"} {
		if strings.HasSuffix(pixFmt, endian) {
			return strings.TrimSuffix(pixFmt, endian)
		}
	}
	return pixFmt
}

// BitDepth returns the bits per component of an ffmpeg pix_fmt. Planar formats
// carry it as a suffix (yuv420p10le, gbrp12be, gray16le), unknown formats count as 8.
func BitDepth(pixFmt string) int {
	name := baseFormat(strings.ToLower(pixFmt))
	if f, ok := packedFormats[name]; ok {
		return f.depth
	}

	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 8
	}

	prefix := name[:i]
	if !strings.HasSuffix(prefix, "p") && prefix != "gray" && prefix != "ya" {
		return 8
	}

	depth, err := strconv.Atoi(name[i:])
	if err != nil || depth < 8 {
		return 8
	}
	return depth
}

func is422(pixFmt string) bool {
	if f, ok := packedFormats[baseFormat(pixFmt)]; ok {
		return f.chroma422
	}
	return strings.Contains(pixFmt, "422")
}

// profileDepth reads the depth from profile names such as "High 10" or "Main 12".
func profileDepth(profile string) int {
	fields := strings.Fields(profile)
	if len(fields) < 2 {
		return 8
	}

	depth, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 8
	}
	return depth
}

func VideoArgs(input, output string, profile Profile, params Params, withAudio bool) []string {
	args := []string{
		"-y", "-i", input,
		"-map", "0:v:0",
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", params.PixFmt,
		"-r", fmt.Sprint(FrameRate),
		"-b:v", fmt.Sprintf("%dk", profile.Bitrate),
		"-s:v", profile.Resolution(),
		"-g", fmt.Sprint(GOPSize),
		"-keyint_min", fmt.Sprint(GOPSize),
		"-sc_threshold", "0", // keyframes on the GOP grid only
		"-movflags", "+faststart",
		"-profile:v", params.Profile,
		"-level", Level,
	}

	if withAudio {
		args = append(args, "-map", "0:a", "-c:a", "aac", "-b:a", fmt.Sprintf("%dk", AudioBitrate), "-ac", "2")
	} else {
		args = append(args, "-an")
	}

	return append(args, output)
}

// AudioArgs encodes to AAC. A fragmentable MP4 container is used when the output
// is headed for encryption, an elementary stream otherwise.
func AudioArgs(input, output string, fragmentable bool) []string {
	args := []string{
		"-y", "-i", input,
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", AudioBitrate),
		"-vn",
	}

	if fragmentable {
		args = append(args, "-f", "mp4")
	}

	return append(args, output)
}

// AudioFileName is the rendition file name for the chosen container.
func AudioFileName(fragmentable bool) string {
	if fragmentable {
		return fmt.Sprintf("%dk.mp4", AudioBitrate)
	}
	return fmt.Sprintf("%dk.aac", AudioBitrate)
}
