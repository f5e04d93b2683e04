package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfcpuTextLayer reads page content streams in-process. Only text shown with the
// standard string operators is recovered; custom font encodings come out garbled.
type pdfcpuTextLayer struct{}

func (pdfcpuTextLayer) Pages(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]string, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("pdfcpu page %d: %w", pageNr, err)
		}
		if r == nil {
			pages = append(pages, "")
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("pdfcpu page %d: %w", pageNr, err)
		}
		pages = append(pages, contentStreamText(data))
	}
	return pages, nil
}

// contentStreamText pulls the shown strings out of a content stream, breaking lines
// on text-positioning operators that move vertically.
func contentStreamText(data []byte) string {
	var (
		out      strings.Builder
		line     strings.Builder
		pending  []string
		operands []float64
		inArray  bool
	)
	flushLine := func() {
		if l := strings.Join(strings.Fields(line.String()), " "); l != "" {
			out.WriteString(l)
			out.WriteByte('\n')
		}
		line.Reset()
	}
	show := func() {
		line.WriteString(strings.Join(pending, ""))
		pending = pending[:0]
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, n := readLiteralString(data[i:])
			pending = append(pending, s)
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			s, n := readHexString(data[i:])
			pending = append(pending, s)
			i += n
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		case c == '{' || c == '}' || c == ')' || c == '>':
			i++
		default:
			start := i
			if c == '/' {
				i++
			}
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelimiter(data[i]) {
				i++
			}
			tok := string(data[start:i])
			if tok == "" {
				i++
				continue
			}
			if tok[0] == '/' {
				continue
			}
			if f, err := strconv.ParseFloat(tok, 64); err == nil {
				// wide negative kerning inside TJ arrays usually stands for a word gap
				if inArray && f < -200 {
					pending = append(pending, " ")
				}
				operands = append(operands, f)
				continue
			}
			switch tok {
			case "Tj", "TJ":
				show()
			case "'", "\"":
				flushLine()
				show()
			case "T*", "ET":
				flushLine()
			case "Td", "TD":
				if n := len(operands); n >= 2 && operands[n-1] != 0 {
					flushLine()
				} else {
					line.WriteByte(' ')
				}
			default:
				pending = pending[:0]
			}
			operands = operands[:0]
		}
	}
	flushLine()
	return strings.TrimSpace(out.String())
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// readLiteralString decodes a (...) string starting at data[0] and returns it with
// the number of bytes consumed.
func readLiteralString(data []byte) (string, int) {
	var raw []byte
	depth := 0
	i := 0
	for ; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			switch e := data[i]; e {
			case 'n':
				raw = append(raw, '\n')
			case 'r':
				raw = append(raw, '\r')
			case 't':
				raw = append(raw, '\t')
			case 'b':
				raw = append(raw, '\b')
			case 'f':
				raw = append(raw, '\f')
			case '\r', '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(data[i]-'0')
					}
					raw = append(raw, byte(val))
				} else {
					raw = append(raw, e)
				}
			}
		case c == '(':
			if depth > 0 {
				raw = append(raw, c)
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return decodePDFBytes(raw), i + 1
			}
			raw = append(raw, c)
		default:
			raw = append(raw, c)
		}
	}
	return decodePDFBytes(raw), i
}

func readHexString(data []byte) (string, int) {
	var (
		raw []byte
		hi  = -1
		i   = 1
	)
	for ; i < len(data); i++ {
		c := data[i]
		if c == '>' {
			i++
			break
		}
		v, ok := hexNibble(c)
		if !ok {
			continue
		}
		if hi < 0 {
			hi = v
		} else {
			raw = append(raw, byte(hi<<4|v))
			hi = -1
		}
	}
	if hi >= 0 {
		raw = append(raw, byte(hi<<4))
	}
	return decodePDFBytes(raw), i
}

func hexNibble(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// decodePDFBytes handles UTF-16BE strings with a byte order mark and treats
// everything else as single-byte Latin text.
func decodePDFBytes(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		units := make([]uint16, 0, (len(raw)-2)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return string(utf16.Decode(units))
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
