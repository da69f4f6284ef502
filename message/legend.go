package message

import (
	"manuvr-go/errcode"
	"manuvr-go/value"
)

// DumpLegend serializes every exportable definition in r as the wire legend
// format of spec.md §6:
//
//	[code: u16][flags: u16][label: cstr][form1: cstr]...[forms-terminator: 0x00]
//
// Each form is rendered as a sequence of single-byte TypeCode values
// followed by its own null terminator; the record as a whole ends with an
// extra zero byte closing the form list.
func DumpLegend(r *Registry) []byte {
	var out []byte
	for _, d := range r.All() {
		if !d.Exportable() {
			continue
		}
		out = appendU16(out, uint16(d.Code))
		out = appendU16(out, uint16(d.Flags))
		out = append(out, d.Label...)
		out = append(out, 0)
		for _, form := range d.Forms {
			for _, t := range form {
				out = append(out, byte(t))
			}
			out = append(out, 0)
		}
		out = append(out, 0) // forms-terminator closing this record
	}
	return out
}

// ParseLegend is the inverse of DumpLegend: it reconstructs the {code,
// flags, label, forms} set a legend dump emitted, without installing the
// results into any Registry (the caller decides whether/how to merge them).
func ParseLegend(buf []byte) ([]Def, error) {
	var defs []Def
	for len(buf) > 0 {
		if len(buf) < 4 {
			return nil, ErrMalformedLegend
		}
		code := Code(readU16(buf))
		flags := Flags(readU16(buf[2:]))
		buf = buf[4:]

		label, rest, err := readCString(buf)
		if err != nil {
			return nil, err
		}
		buf = rest

		var forms [][]value.TypeCode
		for {
			if len(buf) == 0 {
				return nil, ErrMalformedLegend
			}
			if buf[0] == 0 {
				buf = buf[1:]
				break
			}
			form, rest, err := readForm(buf)
			if err != nil {
				return nil, err
			}
			forms = append(forms, form)
			buf = rest
		}

		defs = append(defs, Def{Code: code, Flags: flags, Label: label, Forms: forms})
	}
	return defs, nil
}

func readCString(buf []byte) (string, []byte, error) {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), buf[i+1:], nil
		}
	}
	return "", nil, ErrMalformedLegend
}

func readForm(buf []byte) ([]value.TypeCode, []byte, error) {
	for i, b := range buf {
		if b == 0 {
			form := make([]value.TypeCode, i)
			for j := 0; j < i; j++ {
				form[j] = value.TypeCode(buf[j])
			}
			return form, buf[i+1:], nil
		}
	}
	return nil, nil, ErrMalformedLegend
}

func appendU16(out []byte, v uint16) []byte {
	return append(out, byte(v), byte(v>>8))
}

func readU16(buf []byte) uint16 {
	return uint16(buf[0]) | uint16(buf[1])<<8
}

const ErrMalformedLegend errcode.Code = "message_malformed_legend"
