// Package remote serves a backend.FileSystem over gRPC and exposes the
// client side as a backend.FileSystem, so a commit-log store can run
// against a directory tree owned by another process.
//
// The wire schema (see backend.proto) is hand-maintained: messages are
// plain structs encoded with protobuf/encoding/protowire and registered as
// a gRPC codec, one RPC per storage capability.
package remote

import (
	"github.com/pkg/errors"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
)

// Name of the codec; clients select it per call via CallContentSubtype.
const codecName = "commitlog"

type wireMessage interface {
	marshal(b []byte) []byte
	unmarshal(b []byte) error
}

type wireCodec struct{}

func (wireCodec) Name() string { return codecName }

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, errors.Errorf("codec %s: cannot marshal %T", codecName, v)
	}
	return m.marshal(nil), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return errors.Errorf("codec %s: cannot unmarshal into %T", codecName, v)
	}
	return m.unmarshal(data)
}

func init() {
	encoding.RegisterCodec(wireCodec{})
}

/* field helpers */

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// walkFields drives a per-field callback over an encoded message. The
// callback returns how many bytes it consumed, or 0 to have the unknown
// field skipped.
func walkFields(b []byte, f func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n, err := f(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

func consumeString(b []byte, dst *string) (int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func consumeBool(b []byte, dst *bool) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v != 0
	return n, nil
}

func consumeInt64(b []byte, dst *int64) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = int64(v)
	return n, nil
}

func consumeBytes(b []byte, dst *[]byte) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = append([]byte(nil), v...)
	return n, nil
}

/* messages */

type ExistsRequest struct{ Path string }

func (m *ExistsRequest) marshal(b []byte) []byte { return appendString(b, 1, m.Path) }
func (m *ExistsRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeString(b, &m.Path)
		}
		return 0, nil
	})
}

type ExistsResponse struct{ Exists bool }

func (m *ExistsResponse) marshal(b []byte) []byte { return appendBool(b, 1, m.Exists) }
func (m *ExistsResponse) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.VarintType {
			return consumeBool(b, &m.Exists)
		}
		return 0, nil
	})
}

type ReadRequest struct{ Path string }

func (m *ReadRequest) marshal(b []byte) []byte { return appendString(b, 1, m.Path) }
func (m *ReadRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeString(b, &m.Path)
		}
		return 0, nil
	})
}

type ReadResponse struct{ Data []byte }

func (m *ReadResponse) marshal(b []byte) []byte { return appendBytesField(b, 1, m.Data) }
func (m *ReadResponse) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeBytes(b, &m.Data)
		}
		return 0, nil
	})
}

type WriteRequest struct {
	Path     string
	Truncate bool
	Data     []byte
}

func (m *WriteRequest) marshal(b []byte) []byte {
	b = appendString(b, 1, m.Path)
	b = appendBool(b, 2, m.Truncate)
	return appendBytesField(b, 3, m.Data)
}

func (m *WriteRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &m.Path)
		case num == 2 && typ == protowire.VarintType:
			return consumeBool(b, &m.Truncate)
		case num == 3 && typ == protowire.BytesType:
			return consumeBytes(b, &m.Data)
		}
		return 0, nil
	})
}

type WriteResponse struct{}

func (m *WriteResponse) marshal(b []byte) []byte { return b }
func (m *WriteResponse) unmarshal([]byte) error  { return nil }

type Entry struct {
	Name         string
	Size         int64
	ModTimeNanos int64
	IsDir        bool
}

func (m *Entry) marshal(b []byte) []byte {
	b = appendString(b, 1, m.Name)
	b = appendInt64(b, 2, m.Size)
	b = appendInt64(b, 3, m.ModTimeNanos)
	return appendBool(b, 4, m.IsDir)
}

func (m *Entry) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &m.Name)
		case num == 2 && typ == protowire.VarintType:
			return consumeInt64(b, &m.Size)
		case num == 3 && typ == protowire.VarintType:
			return consumeInt64(b, &m.ModTimeNanos)
		case num == 4 && typ == protowire.VarintType:
			return consumeBool(b, &m.IsDir)
		}
		return 0, nil
	})
}

type ListRequest struct{ Dir string }

func (m *ListRequest) marshal(b []byte) []byte { return appendString(b, 1, m.Dir) }
func (m *ListRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeString(b, &m.Dir)
		}
		return 0, nil
	})
}

type ListResponse struct{ Entries []*Entry }

func (m *ListResponse) marshal(b []byte) []byte {
	for _, e := range m.Entries {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, e.marshal(nil))
	}
	return b
}

func (m *ListResponse) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			e := new(Entry)
			if err := e.unmarshal(v); err != nil {
				return 0, err
			}
			m.Entries = append(m.Entries, e)
			return n, nil
		}
		return 0, nil
	})
}

type RenameRequest struct{ Src, Dst string }

func (m *RenameRequest) marshal(b []byte) []byte {
	b = appendString(b, 1, m.Src)
	return appendString(b, 2, m.Dst)
}

func (m *RenameRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &m.Src)
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, &m.Dst)
		}
		return 0, nil
	})
}

type RenameResponse struct{ Renamed bool }

func (m *RenameResponse) marshal(b []byte) []byte { return appendBool(b, 1, m.Renamed) }
func (m *RenameResponse) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.VarintType {
			return consumeBool(b, &m.Renamed)
		}
		return 0, nil
	})
}

type DeleteRequest struct {
	Path      string
	Recursive bool
}

func (m *DeleteRequest) marshal(b []byte) []byte {
	b = appendString(b, 1, m.Path)
	return appendBool(b, 2, m.Recursive)
}

func (m *DeleteRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &m.Path)
		case num == 2 && typ == protowire.VarintType:
			return consumeBool(b, &m.Recursive)
		}
		return 0, nil
	})
}

type DeleteResponse struct{ Deleted bool }

func (m *DeleteResponse) marshal(b []byte) []byte { return appendBool(b, 1, m.Deleted) }
func (m *DeleteResponse) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.VarintType {
			return consumeBool(b, &m.Deleted)
		}
		return 0, nil
	})
}

type MkdirRequest struct{ Dir string }

func (m *MkdirRequest) marshal(b []byte) []byte { return appendString(b, 1, m.Dir) }
func (m *MkdirRequest) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeString(b, &m.Dir)
		}
		return 0, nil
	})
}

type MkdirResponse struct{}

func (m *MkdirResponse) marshal(b []byte) []byte { return b }
func (m *MkdirResponse) unmarshal([]byte) error  { return nil }
