package extract

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type namedEncoding struct {
	name string
	enc  encoding.Encoding
}

// Tried in order after UTF-8.
var legacyEncodings = []namedEncoding{
	{"windows-1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		if s := string(data); plausibleText(s) {
			return s, nil
		}
	}
	tried := []string{"utf-8"}
	for _, le := range legacyEncodings {
		tried = append(tried, le.name)
		out, err := le.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if s := string(out); plausibleText(s) {
			return s, nil
		}
	}
	return "", &DecodeError{Tried: tried}
}

// plausibleText rejects replacement characters and control characters other
// than ordinary whitespace; both indicate the wrong encoding or binary input.
func plausibleText(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		if r == utf8.RuneError {
			return true
		}
		switch r {
		case '\n', '\r', '\t', '\f', '\v':
			return false
		}
		return unicode.IsControl(r) && r < 0x80
	})
}
