package acroform

import (
	"encoding/hex"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`(`, `\(`,
	`)`, `\)`,
	"\r", `\r`,
	"\n", `\n`,
)

// encodeTextString encodes s as a PDF text string: a literal for printable
// ASCII, UTF-16BE with byte order mark otherwise.
func encodeTextString(s string) types.Object {
	if isPrintableASCII(s) {
		return types.StringLiteral(literalEscaper.Replace(s))
	}
	// Encoders carry state, so each call builds its own.
	b, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return types.StringLiteral(literalEscaper.Replace(s))
	}
	return types.HexLiteral(hex.EncodeToString(b))
}

// winAnsiLiteral encodes s for a show-text operator using a WinAnsiEncoding font.
// Runes outside Windows-1252 are replaced.
func winAnsiLiteral(s string) string {
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	b, err := enc.Bytes([]byte(s))
	if err != nil {
		b = []byte(s)
	}
	return "(" + literalEscaper.Replace(string(b)) + ")"
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x7f || (c < 0x20 && c != '\n' && c != '\r' && c != '\t') {
			return false
		}
	}
	return true
}
