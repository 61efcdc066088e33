package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/printquote/pkg/geometry"
)

const (
	// HeaderSize is the length of the binary header including the triangle count
	HeaderSize = 84
	// RecordSize is the length of one binary triangle record
	RecordSize = 50
	// MaxTriangles bounds the work done on a single file
	MaxTriangles = 500_000
)

var (
	// ErrEmpty is returned for zero-length input
	ErrEmpty = errors.New("stl: empty input")
	// ErrTruncated is returned when a binary file ends inside a triangle record
	ErrTruncated = errors.New("stl: truncated binary data")
	// ErrNoTriangles is returned when the input contains no facets
	ErrNoTriangles = errors.New("stl: no triangles")
)

// ParseFile reads an STL file and returns a Model
func ParseFile(filename string) (*Model, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseBytes(data)
}

// Parse reads an STL stream and returns a Model
func Parse(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stl data: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses an in-memory STL file. It automatically detects whether
// the data is ASCII or binary: a buffer whose length matches the binary layout
// is treated as binary even when its header starts with "solid".
func ParseBytes(data []byte) (*Model, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	var (
		model *Model
		err   error
	)
	if IsBinary(data) || !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 512)], " \t\r\n"), []byte("solid")) {
		model, err = parseBinary(data)
	} else {
		model, err = parseASCII(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	if model.TriangleCount() == 0 {
		return nil, ErrNoTriangles
	}
	return model, nil
}

// IsBinary reports whether data has exactly the size announced by its binary header
func IsBinary(data []byte) bool {
	if len(data) < HeaderSize {
		return false
	}
	count := binary.LittleEndian.Uint32(data[80:84])
	return uint64(len(data)) == HeaderSize+uint64(count)*RecordSize
}

// parseASCII parses an ASCII STL file
func parseASCII(reader io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	model := NewModel("")

	var currentNormal geometry.Vector3
	vertices := make([]geometry.Vector3, 0, 3)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				model.Name = strings.Join(fields[1:], " ")
			}

		case "facet":
			if len(fields) >= 5 && fields[1] == "normal" {
				if v, ok := parseVector(fields[2:5]); ok {
					currentNormal = v
				}
			}

		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("malformed vertex line %q", scanner.Text())
			}
			v, ok := parseVector(fields[1:4])
			if !ok {
				return nil, fmt.Errorf("invalid vertex coordinates %q", scanner.Text())
			}
			vertices = append(vertices, v)

		case "endfacet":
			if len(vertices) == 3 {
				model.AddTriangle(geometry.NewTriangle(currentNormal, vertices[0], vertices[1], vertices[2]))
			}
			vertices = vertices[:0]
			if model.TriangleCount() >= MaxTriangles {
				return model, nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASCII STL: %w", err)
	}

	return model, nil
}

func parseVector(fields []string) (geometry.Vector3, bool) {
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geometry.Vector3{}, false
		}
		c[i] = v
	}
	return geometry.NewVector3(c[0], c[1], c[2]), true
}

// parseBinary parses a binary STL file
func parseBinary(data []byte) (*Model, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("failed to read header: %w", ErrTruncated)
	}

	model := NewModel(strings.TrimSpace(string(bytes.TrimRight(data[:80], "\x00"))))

	count := int(binary.LittleEndian.Uint32(data[80:84]))
	if available := (len(data) - HeaderSize) / RecordSize; count > available {
		return nil, fmt.Errorf("header announces %d triangles, only %d present: %w", count, available, ErrTruncated)
	}
	count = min(count, MaxTriangles)

	model.Triangles = make([]geometry.Triangle, 0, count)
	for i := 0; i < count; i++ {
		record := data[HeaderSize+i*RecordSize:]
		model.AddTriangle(geometry.NewTriangle(
			readVector(record[0:]),
			readVector(record[12:]),
			readVector(record[24:]),
			readVector(record[36:]),
		))
	}

	return model, nil
}

// readVector decodes three little-endian float32 values
func readVector(b []byte) geometry.Vector3 {
	return geometry.NewVector3(
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))),
	)
}
