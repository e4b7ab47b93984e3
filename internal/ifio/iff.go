// Package ifio implements the generic IFF chunk container format (a FORM
// wrapping typed, length-prefixed, even-padded chunks) shared by Glulx save
// files (IFZS) and Blorb resource archives (IFRS).
package ifio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Chunk is one IFF chunk: a 4-byte type ID plus its raw payload.
type Chunk struct {
	ID   string
	Data []byte
}

// Form is a parsed top-level IFF FORM: its sub-type ID (e.g. "IFZS",
// "IFRS") and the chunks it contains, in file order.
type Form struct {
	SubType string
	Chunks  []Chunk
}

// ReadForm parses a complete "FORM" container from data.
func ReadForm(data []byte) (*Form, error) {
	if len(data) < 12 || string(data[0:4]) != "FORM" {
		return nil, fmt.Errorf("ifio: not an IFF FORM")
	}
	formLen := binary.BigEndian.Uint32(data[4:8])
	if int(formLen)+8 > len(data) {
		return nil, fmt.Errorf("ifio: FORM length exceeds available data")
	}
	subType := string(data[8:12])

	f := &Form{SubType: subType}
	pos := 12
	end := int(formLen) + 8
	for pos+8 <= end {
		id := string(data[pos : pos+4])
		length := binary.BigEndian.Uint32(data[pos+4 : pos+8])
		start := pos + 8
		stop := start + int(length)
		if stop > len(data) {
			return nil, fmt.Errorf("ifio: chunk %q length exceeds available data", id)
		}
		f.Chunks = append(f.Chunks, Chunk{ID: id, Data: data[start:stop]})
		pos = stop
		if length%2 == 1 {
			pos++ // chunks are padded to an even length
		}
	}
	return f, nil
}

// Find returns the first chunk with the given ID, or nil.
func (f *Form) Find(id string) []byte {
	for _, c := range f.Chunks {
		if c.ID == id {
			return c.Data
		}
	}
	return nil
}

// WriteForm serializes subType and chunks as a complete "FORM" container.
func WriteForm(w io.Writer, subType string, chunks []Chunk) error {
	var body []byte
	body = append(body, subType...)
	for _, c := range chunks {
		if len(c.ID) != 4 {
			return fmt.Errorf("ifio: chunk ID %q must be 4 bytes", c.ID)
		}
		var hdr [8]byte
		copy(hdr[0:4], c.ID)
		binary.BigEndian.PutUint32(hdr[4:8], uint32(len(c.Data)))
		body = append(body, hdr[:]...)
		body = append(body, c.Data...)
		if len(c.Data)%2 == 1 {
			body = append(body, 0)
		}
	}

	var out [8]byte
	copy(out[0:4], "FORM")
	binary.BigEndian.PutUint32(out[4:8], uint32(len(body)))
	if _, err := w.Write(out[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}
