package pool

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxFrameSize caps a single request or response.
const maxFrameSize = 16 << 20

// request is sent from the pool to a worker process.
type request struct {
	ID     string
	TaskID uint32
	Name   string
	Type   string
	Params string
}

// response is sent back by the worker once the task finished.
type response struct {
	ID         string
	Output     string
	Error      string
	Failed     bool
	PID        int
	StartedAt  int64 // unix nanos
	FinishedAt int64 // unix nanos
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func (r *request) marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.ID)
	b = appendVarint(b, 2, uint64(r.TaskID))
	b = appendString(b, 3, r.Name)
	b = appendString(b, 4, r.Type)
	b = appendString(b, 5, r.Params)
	return b
}

func (r *request) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, v []byte, x uint64) {
		switch num {
		case 1:
			r.ID = string(v)
		case 2:
			r.TaskID = uint32(x)
		case 3:
			r.Name = string(v)
		case 4:
			r.Type = string(v)
		case 5:
			r.Params = string(v)
		}
	})
}

func (r *response) marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.ID)
	b = appendString(b, 2, r.Output)
	b = appendString(b, 3, r.Error)
	b = appendVarint(b, 4, protowire.EncodeBool(r.Failed))
	b = appendVarint(b, 5, uint64(r.PID))
	b = appendVarint(b, 6, uint64(r.StartedAt))
	b = appendVarint(b, 7, uint64(r.FinishedAt))
	return b
}

func (r *response) unmarshal(b []byte) error {
	return decodeFields(b, func(num protowire.Number, v []byte, x uint64) {
		switch num {
		case 1:
			r.ID = string(v)
		case 2:
			r.Output = string(v)
		case 3:
			r.Error = string(v)
		case 4:
			r.Failed = protowire.DecodeBool(x)
		case 5:
			r.PID = int(x)
		case 6:
			r.StartedAt = int64(x)
		case 7:
			r.FinishedAt = int64(x)
		}
	})
}

// decodeFields walks a protobuf message and reports every varint and
// length-delimited field. Other wire types are skipped.
func decodeFields(b []byte, visit func(num protowire.Number, v []byte, x uint64)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("invalid field tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("invalid varint field %d: %w", num, protowire.ParseError(n))
			}
			visit(num, nil, x)
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("invalid bytes field %d: %w", num, protowire.ParseError(n))
			}
			visit(num, v, 0)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// writeFrame writes msg prefixed with its uvarint length.
func writeFrame(w io.Writer, msg []byte) error {
	_, err := w.Write(protowire.AppendBytes(nil, msg))
	return err
}

// readFrame reads one length-prefixed frame. It returns io.EOF only when the
// stream ends cleanly between frames.
func readFrame(r *bufio.Reader) ([]byte, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", size, maxFrameSize)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}
