package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/philipparndt/printquote/pkg/geometry"
)

// WriteBinary encodes the model in the binary STL layout. Facet normals are
// recomputed from the winding order when the stored normal is zero.
func WriteBinary(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	var header [HeaderSize]byte
	copy(header[:80], m.Name)
	binary.LittleEndian.PutUint32(header[80:], uint32(len(m.Triangles)))
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var record [RecordSize]byte
	for i, t := range m.Triangles {
		normal := t.Normal
		if normal == (geometry.Vector3{}) {
			normal = t.CalculateNormal()
		}
		putVector(record[0:], normal)
		putVector(record[12:], t.V1)
		putVector(record[24:], t.V2)
		putVector(record[36:], t.V3)
		if _, err := bw.Write(record[:]); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}

	return bw.Flush()
}

// WriteASCII encodes the model as an ASCII STL solid
func WriteASCII(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", m.Name)
	for _, t := range m.Triangles {
		n := t.CalculateNormal()
		fmt.Fprintf(bw, "  facet normal %g %g %g\n    outer loop\n", n.X, n.Y, n.Z)
		for _, v := range []geometry.Vector3{t.V1, t.V2, t.V3} {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", v.X, v.Y, v.Z)
		}
		fmt.Fprintf(bw, "    endloop\n  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", m.Name)
	return bw.Flush()
}

func putVector(b []byte, v geometry.Vector3) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}
