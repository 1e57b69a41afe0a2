package avrofile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

func compressBlock(codec Codec, raw []byte) ([]byte, error) {
	switch codec {
	case CodecNull:
		return raw, nil
	case CodecDeflate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("avrofile: new deflate writer: %w", err)
		}
		if _, err := w.Write(raw); err != nil {
			return nil, fmt.Errorf("avrofile: deflate block: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("avrofile: close deflate writer: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("avrofile: unsupported codec %q", codec)
	}
}

func decompressBlock(codec Codec, block []byte) ([]byte, error) {
	switch codec {
	case CodecNull:
		return block, nil
	case CodecDeflate:
		r := flate.NewReader(bytes.NewReader(block))
		defer r.Close()
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("avrofile: inflate block: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("avrofile: unsupported codec %q", codec)
	}
}
