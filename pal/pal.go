/*
Package pal reads and writes palette files in two forms; a raw binary form
of one RGB triplet per entry, and the JASC-PAL text form understood by
most pixel-art tools.

It implements the encoding.BinaryMarshaler, encoding.BinaryUnmarshaler,
encoding.TextMarshaler and encoding.TextUnmarshaler interfaces.
*/
package pal

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bodgit/retropal/colour"
)

const maxEntries = 256

const (
	textHeader  = "JASC-PAL"
	textVersion = "0100"
)

var (
	errTooMany   = fmt.Errorf("pal: more than %d entries", maxEntries)
	errTruncated = errors.New("pal: truncated palette")
)

// Palette is an ordered list of colors. Order is significant; the position
// of an entry is its hardware slot.
type Palette []colour.Color

// MarshalBinary encodes the palette as packed RGB triplets.
func (p Palette) MarshalBinary() ([]byte, error) {
	if len(p) > maxEntries {
		return nil, errTooMany
	}

	b := make([]byte, 0, len(p)*3)
	for _, c := range p {
		b = append(b, c.R, c.G, c.B)
	}
	return b, nil
}

// UnmarshalBinary decodes packed RGB triplets.
func (p *Palette) UnmarshalBinary(b []byte) error {
	if len(b)%3 != 0 {
		return errTruncated
	}
	if len(b)/3 > maxEntries {
		return errTooMany
	}

	out := make(Palette, 0, len(b)/3)
	for i := 0; i < len(b); i += 3 {
		out = append(out, colour.Color{R: b[i], G: b[i+1], B: b[i+2]})
	}
	*p = out
	return nil
}

// MarshalText encodes the palette in JASC-PAL form. Lines end with a bare
// newline; readers that insist on CRLF are rare enough to ignore.
func (p Palette) MarshalText() ([]byte, error) {
	if len(p) > maxEntries {
		return nil, errTooMany
	}

	b := new(bytes.Buffer)
	fmt.Fprintf(b, "%s\n%s\n%d\n", textHeader, textVersion, len(p))
	for _, c := range p {
		fmt.Fprintf(b, "%d %d %d\n", c.R, c.G, c.B)
	}
	return b.Bytes(), nil
}

// UnmarshalText decodes JASC-PAL input, tolerating CRLF line endings.
func (p *Palette) UnmarshalText(text []byte) error {
	lines := strings.Split(strings.ReplaceAll(string(text), "\r\n", "\n"), "\n")
	if len(lines) < 3 || strings.TrimSpace(lines[0]) != textHeader {
		return errors.New("pal: not a JASC-PAL palette")
	}
	if strings.TrimSpace(lines[1]) != textVersion {
		return fmt.Errorf("pal: unsupported version %q", strings.TrimSpace(lines[1]))
	}

	count, err := strconv.Atoi(strings.TrimSpace(lines[2]))
	if err != nil || count < 0 {
		return errors.New("pal: invalid entry count")
	}
	if count > maxEntries {
		return errTooMany
	}
	if len(lines) < 3+count {
		return errTruncated
	}

	out := make(Palette, 0, count)
	for _, line := range lines[3 : 3+count] {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return fmt.Errorf("pal: malformed entry %q", line)
		}
		var rgb [3]uint8
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil || v < 0 || v > 255 {
				return fmt.Errorf("pal: malformed entry %q", line)
			}
			rgb[i] = uint8(v)
		}
		out = append(out, colour.Color{R: rgb[0], G: rgb[1], B: rgb[2]})
	}
	*p = out
	return nil
}
