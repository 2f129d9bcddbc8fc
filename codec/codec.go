// Package codec turns cached values into their stored representation and back.
//
// The canonical form is JSON. Values whose JSON exceeds CompressThreshold bytes
// may be gzip-compressed; compression is best-effort and never fails a write.
package codec

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/jmgilman/go/errors"
	"github.com/klauspost/compress/gzip"
)

// CompressThreshold is the serialized size above which compression is attempted.
const CompressThreshold = 1024

// ErrDecode marks every failure returned by Decode.
var ErrDecode = stderrors.New("codec: decode failed")

// Encoded is the stored representation of a value.
type Encoded struct {
	Data       []byte
	Size       int64
	Compressed bool
}

// Measure returns the size accounted for a stored representation.
// All size bookkeeping goes through here, so a different accounting
// strategy only needs to change this function.
func Measure(data []byte) int64 { return int64(len(data)) }

// Encode serializes v to JSON and, when compress is set and the JSON is
// larger than CompressThreshold, gzips it. A compression failure falls back
// to the plain JSON. Only a serialization failure is returned as an error.
func Encode(v any, compress bool) (Encoded, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Encoded{}, errors.Wrap(err, errors.CodeInvalidInput, "codec: value is not serializable")
	}
	plain := Encoded{Data: raw, Size: Measure(raw)}
	if !compress || plain.Size <= CompressThreshold {
		return plain, nil
	}

	z, err := deflate(raw)
	if err != nil {
		return plain, nil
	}
	return Encoded{Data: z, Size: Measure(z), Compressed: true}, nil
}

// Decode reverses Encode into dst, which must be a non-nil pointer.
func Decode(data []byte, compressed bool, dst any) error {
	if compressed {
		raw, err := inflate(data)
		if err != nil {
			return decodeErr(err, "codec: corrupt compressed data")
		}
		data = raw
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return decodeErr(err, "codec: invalid stored value")
	}
	return nil
}

func decodeErr(cause error, msg string) error {
	return errors.Wrap(stderrors.Join(ErrDecode, cause), errors.CodeInternal, msg)
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(z []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(z))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
