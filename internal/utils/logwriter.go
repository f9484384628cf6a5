package utils

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/rs/zerolog"
)

// LogWriterCtx forwards every complete line written to it as a log event.
type LogWriterCtx struct {
	logger zerolog.Logger
	level  zerolog.Level
	buf    []byte
}

func LogWriter(l zerolog.Logger, level zerolog.Level) *LogWriterCtx {
	return &LogWriterCtx{
		logger: l,
		level:  level,
	}
}

func (l *LogWriterCtx) Write(p []byte) (n int, err error) {
	l.buf = append(l.buf, p...)

	// ffmpeg rewrites its progress line with \r
	i := bytes.LastIndexAny(l.buf, "\r\n")
	if i < 0 {
		return len(p), nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(l.buf[:i+1]))
	scanner.Split(scanLines)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			l.logger.WithLevel(l.level).Msg(line)
		}
	}

	l.buf = append(l.buf[:0], l.buf[i+1:]...)
	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *LogWriterCtx) Flush() {
	if line := strings.TrimSpace(string(l.buf)); line != "" {
		l.logger.WithLevel(l.level).Msg(line)
	}
	l.buf = l.buf[:0]
}

func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
