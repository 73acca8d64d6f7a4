// Package compression holds the zstd codec used for report blobs in the
// history store.
package compression

import (
	"github.com/klauspost/compress/zstd"
)

// Shared encoder and decoder. Only EncodeAll and DecodeAll are used; both are
// safe for concurrent use.
var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	if encoder, err = zstd.NewWriter(nil); err != nil {
		panic(err)
	}
	if decoder, err = zstd.NewReader(nil); err != nil {
		panic(err)
	}
}

// Compress encodes src as a single zstd frame.
func Compress(src []byte) []byte {
	return encoder.EncodeAll(src, nil)
}

// Decompress decodes a blob produced by Compress.
func Decompress(blob []byte) ([]byte, error) {
	return decoder.DecodeAll(blob, nil)
}
