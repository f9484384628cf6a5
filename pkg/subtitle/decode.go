package subtitle

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// FallbackEncoding is used with replacement characters when no candidate decodes cleanly.
const FallbackEncoding = "windows-1252"

// legacyEncodings are tried in order after the detector's guess.
var legacyEncodings = []string{"utf-8", "utf-16", "windows-1252", "iso-8859-1"}

var errNotClean = errors.New("input does not decode cleanly")

// chardet names that htmlindex does not know
var charsetAliases = map[string]string{
	"gb-18030":   "gb18030",
	"ibm424_rtl": "",
	"ibm424_ltr": "",
	"ibm420_rtl": "",
	"ibm420_ltr": "",
}

// Decoded is subtitle text converted to UTF-8.
type Decoded struct {
	Text     string
	Encoding string
	Lossy    bool
	Tried    []string
}

// Decode converts raw subtitle bytes to UTF-8. It never fails: when nothing decodes
// cleanly, the windows-1252 decoder is applied with replacement characters.
func Decode(data []byte) Decoded {
	candidates := make([]string, 0, len(legacyEncodings)+1)
	if guess := detect(data); guess != "" {
		candidates = append(candidates, guess)
	}
	candidates = append(candidates, legacyEncodings...)

	var tried []string
	for _, name := range candidates {
		tried = append(tried, name)

		text, err := decodeStrict(data, name)
		if err != nil {
			continue
		}

		return Decoded{
			Text:     text,
			Encoding: name,
			Tried:    tried,
		}
	}

	text, _ := charmap.Windows1252.NewDecoder().Bytes(data)
	return Decoded{
		Text:     strings.ToValidUTF8(string(text), "\uFFFD"),
		Encoding: FallbackEncoding,
		Lossy:    true,
		Tried:    tried,
	}
}

func detect(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return ""
	}

	name := strings.ToLower(result.Charset)
	if alias, ok := charsetAliases[name]; ok {
		return alias
	}
	return name
}

func decodeStrict(data []byte, name string) (string, error) {
	switch name {
	case "utf-8":
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(data) {
			return "", errNotClean
		}
		return string(data), nil
	case "ascii", "us-ascii":
		for _, b := range data {
			if b >= 0x80 {
				return "", errNotClean
			}
		}
		return string(data), nil
	case "utf-16":
		// without a byte order mark almost any even-length input would decode
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %s: %w", name, err)
	}

	return decodeWith(enc, data)
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}

	text := strings.TrimPrefix(string(out), "\uFEFF")
	// undecodable sequences come back as U+FFFD
	if strings.ContainsRune(text, utf8.RuneError) && !bytes.Contains(data, []byte("\xef\xbf\xbd")) {
		return "", errNotClean
	}
	return text, nil
}
