package world

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"chunk-mender/core/chunk"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Compression is the codec byte stored in front of each chunk payload.
type Compression byte

const (
	CompressionGzip Compression = 1
	CompressionZlib Compression = 2
	CompressionNone Compression = 3
	CompressionZstd Compression = 4
)

var compressionByName = map[string]Compression{
	"gzip": CompressionGzip,
	"zlib": CompressionZlib,
	"none": CompressionNone,
	"zstd": CompressionZstd,
}

// maxPayload bounds the decompressed size of a chunk document.
const maxPayload = 4 << 20

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPayload))
)

//go:embed chunk.schema.json
var chunkSchemaJSON string

var chunkSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("chunk.schema.json", strings.NewReader(chunkSchemaJSON)); err != nil {
		panic(err)
	}
	return c.MustCompile("chunk.schema.json")
}

// document is the JSON form of a chunk.
type document struct {
	X              int32  `json:"x"`
	Z              int32  `json:"z"`
	Blocks         []byte `json:"blocks"`
	SkyLight       []byte `json:"sky_light"`
	HeightMap      []byte `json:"height_map"`
	LightPopulated bool   `json:"light_populated,omitempty"`
}

func compress(c Compression, raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch c {
	case CompressionGzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case CompressionZlib:
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case CompressionNone:
		return append([]byte(nil), raw...), nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(raw, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
	return buf.Bytes(), nil
}

func decompress(c Compression, payload []byte) ([]byte, error) {
	var r io.Reader
	switch c {
	case CompressionGzip:
		gr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		r = gr
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	case CompressionNone:
		r = bytes.NewReader(payload)
	case CompressionZstd:
		return zstdDecoder.DecodeAll(payload, nil)
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxPayload+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxPayload {
		return nil, fmt.Errorf("payload exceeds %d bytes", maxPayload)
	}
	return out, nil
}

// encodeChunk serializes and compresses d.
func encodeChunk(d *Data, c Compression) ([]byte, error) {
	raw, err := json.Marshal(document{
		X:              d.Coord.X,
		Z:              d.Coord.Z,
		Blocks:         d.Blocks,
		SkyLight:       d.SkyLight,
		HeightMap:      d.HeightMap,
		LightPopulated: d.LightPopulated,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chunk %s: %w", d.Coord, err)
	}
	return compress(c, raw)
}

// decodeChunk decompresses, validates and decodes a chunk payload. Every
// failure wraps ErrMalformedChunk.
func decodeChunk(c Compression, payload []byte) (*Data, error) {
	raw, err := decompress(c, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrMalformedChunk, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrMalformedChunk, err)
	}
	if err := chunkSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: schema: %v", ErrMalformedChunk, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformedChunk, err)
	}

	d := &Data{
		Coord:          chunk.Coord{X: doc.X, Z: doc.Z},
		Blocks:         doc.Blocks,
		SkyLight:       doc.SkyLight,
		HeightMap:      doc.HeightMap,
		LightPopulated: doc.LightPopulated,
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
	}
	return d, nil
}
