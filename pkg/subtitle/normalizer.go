package subtitle

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

var cueSeparator = regexp.MustCompile(`\n[ \t]*\n`)

// Source is a downloaded subtitle file in an unknown text encoding.
type Source struct {
	Language string
	Path     string
}

// Track is a normalized WebVTT text track.
type Track struct {
	Language string
	Path     string
	Encoding string
}

type NormalizerCtx struct {
	logger zerolog.Logger
}

func New() *NormalizerCtx {
	return &NormalizerCtx{
		logger: log.With().Str("module", "subtitle").Logger(),
	}
}

// NormalizeAll converts every source into outDir, keeping input order.
func (n *NormalizerCtx) NormalizeAll(sources []Source, outDir string) ([]Track, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, job.Wrap(job.ErrTranscode, "normalize", "create subtitle dir", err)
	}

	tracks := make([]Track, 0, len(sources))
	for _, src := range sources {
		track, err := n.Normalize(src, outDir)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	return tracks, nil
}

// Normalize writes <language>_utf8.srt and <language>.vtt into outDir.
func (n *NormalizerCtx) Normalize(src Source, outDir string) (Track, error) {
	logger := n.logger.With().Str("language", src.Language).Str("path", src.Path).Logger()

	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return Track{}, job.Wrap(job.ErrFetch, "normalize", "read subtitle "+src.Language, err)
	}

	decoded := Decode(raw)
	if decoded.Lossy {
		logger.Warn().Strs("tried", decoded.Tried).Msg("no encoding matched, falling back to windows-1252 with replacement")
	} else {
		logger.Info().Str("encoding", decoded.Encoding).Msg("detected subtitle encoding")
	}

	utf8Path := filepath.Join(outDir, src.Language+"_utf8.srt")
	if err := os.WriteFile(utf8Path, []byte(decoded.Text), 0644); err != nil {
		return Track{}, job.Wrap(job.ErrTranscode, "normalize", "write utf-8 subtitle", err)
	}

	vtt, skipped, err := ToWebVTT(decoded.Text)
	if err != nil {
		return Track{}, job.Wrap(job.ErrTranscode, "normalize", "convert "+src.Language+" to webvtt", err)
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("dropped unparseable subtitle cues")
	}

	vttPath := filepath.Join(outDir, src.Language+".vtt")
	if err := os.WriteFile(vttPath, vtt, 0644); err != nil {
		return Track{}, job.Wrap(job.ErrTranscode, "normalize", "write webvtt", err)
	}

	logger.Info().Str("output", vttPath).Msg("converted subtitle to webvtt")
	return Track{
		Language: src.Language,
		Path:     vttPath,
		Encoding: decoded.Encoding,
	}, nil
}

// ToWebVTT converts SRT text to WebVTT. Input that already is WebVTT is re-emitted.
// When the document does not parse as a whole, it is read cue by cue and cues that
// still fail are dropped. skipped counts the dropped cues.
func ToWebVTT(text string) (out []byte, skipped int, err error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	isVTT := strings.HasPrefix(strings.TrimSpace(text), "WEBVTT")

	subs, err := parseSubtitles(text, isVTT)
	if err != nil {
		subs, skipped = parseCues(text, isVTT)
	}

	// astisub refuses to write an empty document
	if len(subs.Items) == 0 {
		return []byte("WEBVTT\n\n"), skipped, nil
	}

	var buf bytes.Buffer
	if err := subs.WriteToWebVTT(&buf); err != nil {
		return nil, skipped, fmt.Errorf("unable to write webvtt: %w", err)
	}

	return buf.Bytes(), skipped, nil
}

func parseSubtitles(text string, isVTT bool) (*astisub.Subtitles, error) {
	if isVTT {
		return astisub.ReadFromWebVTT(strings.NewReader(text))
	}
	return astisub.ReadFromSRT(strings.NewReader(text))
}

// parseCues reads each blank line separated block on its own.
func parseCues(text string, isVTT bool) (*astisub.Subtitles, int) {
	subs := astisub.NewSubtitles()
	skipped := 0

	for _, block := range cueSeparator.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" || (isVTT && strings.HasPrefix(block, "WEBVTT")) {
			continue
		}

		if isVTT {
			block = "WEBVTT\n\n" + block
		}

		cue, err := parseSubtitles(block+"\n", isVTT)
		if err != nil {
			skipped++
			continue
		}
		subs.Items = append(subs.Items, cue.Items...)
	}

	return subs, skipped
}
