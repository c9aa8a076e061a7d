/*package io contains the file formats used by the neighbors command line
tool: particle catalogs, bond lists and the query configuration file.
*/
package io

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/neighbors/geom"
)

const (
	// Endianness used by default when writing catalogs. Catalogs of any
	// endianness can be read.
	DefaultEndiannessFlag int32 = -1

	bigEndianFlag int32 = 0
	littleEndianFlag int32 = -1
	// binaryHeaderSize is the size of blocks 1-3 of a binary catalog.
	binaryHeaderSize = 4 + 4 + 8
)

// Catalog is a set of particle positions with optional integer types.
type Catalog struct {
	Points []geom.Vec
	Types []int // nil if the catalog is untyped.
}

// Len returns the number of particles in the catalog.
func (cat *Catalog) Len() int { return len(cat.Points) }

// ReadTextCatalog reads a catalog from whitespace separated columns. cols
// gives the x, y and z columns. typeCol is the column containing particle
// types, or -1 if there isn't one.
func ReadTextCatalog(fname string, cols [3]int, typeCol int) (*Catalog, error) {
	colIdxs := []int{cols[0], cols[1], cols[2]}
	if typeCol >= 0 { colIdxs = append(colIdxs, typeCol) }

	tab, err := table.ReadTable(fname, colIdxs, nil)
	if err != nil { return nil, err }

	xs, ys, zs := tab[0], tab[1], tab[2]
	cat := &Catalog{ Points: make([]geom.Vec, len(xs)) }
	for i := range xs {
		cat.Points[i] = geom.Vec{xs[i], ys[i], zs[i]}
	}

	if typeCol >= 0 {
		ts := tab[3]
		cat.Types = make([]int, len(ts))
		for i := range ts {
			cat.Types[i] = int(ts[i])
			if float64(cat.Types[i]) != ts[i] || ts[i] < 0 {
				return nil, fmt.Errorf(
					"Type of particle %d in %s is %g, which isn't a "+
						"non-negative integer.", i, fname, ts[i],
				)
			}
		}
	}

	return cat, nil
}

/*
The binary format used for particle catalogs is as follows:
    |-- 1 --||-- 2 --||-- 3 --||-- ... 4 ... --||-- ... 5 ... --|

    1 - (int32) Flag indicating the endianness of the file. 0 indicates a big
        endian byte ordering and -1 indicates a little endian byte order.
    2 - (int32) Flag which is 1 if block 5 is present and 0 otherwise.
    3 - (int64) Number of particles in the catalog.
    4 - ([][3]float32) Contiguous block of x, y, z coordinates.
    5 - ([]int32) Contiguous block of particle types.
*/

// ReadBinaryCatalog reads a catalog written by WriteBinaryCatalog.
func ReadBinaryCatalog(fname string) (*Catalog, error) {
	f, err := os.Open(fname)
	if err != nil { return nil, err }
	defer f.Close()

	info, err := f.Stat()
	if err != nil { return nil, err }

	cat, err := readBinaryCatalog(bufio.NewReader(f), info.Size())
	if err != nil { return nil, fmt.Errorf("%s: %s", fname, err.Error()) }
	return cat, nil
}

// readBinaryCatalog reads a catalog of size bytes from r.
func readBinaryCatalog(r io.Reader, size int64) (*Catalog, error) {
	order, err := readEndianness(r)
	if err != nil { return nil, err }

	var typed int32
	var n int64
	if err = binary.Read(r, order, &typed); err != nil { return nil, err }
	if err = binary.Read(r, order, &n); err != nil { return nil, err }
	if typed != 0 && typed != 1 {
		return nil, fmt.Errorf("type flag is %d, expected 0 or 1", typed)
	} else if n < 0 {
		return nil, fmt.Errorf("particle count is %d", n)
	}

	perParticle := int64(3 * 4)
	if typed == 1 { perParticle += 4 }
	if maxN := (size - binaryHeaderSize) / perParticle; n > maxN {
		return nil, fmt.Errorf(
			"header lists %d particles, but the %d byte file can hold "+
				"at most %d", n, size, maxN,
		)
	}

	xs := make([][3]float32, n)
	if err = binary.Read(r, order, xs); err != nil { return nil, err }

	cat := &Catalog{ Points: make([]geom.Vec, n) }
	for i := range xs {
		for k := 0; k < 3; k++ { cat.Points[i][k] = float64(xs[i][k]) }
	}

	if typed == 1 {
		ts := make([]int32, n)
		if err = binary.Read(r, order, ts); err != nil { return nil, err }
		cat.Types = make([]int, n)
		for i := range ts { cat.Types[i] = int(ts[i]) }
	}

	return cat, nil
}

// WriteBinaryCatalog writes a catalog using the default endianness. Positions
// are stored as float32.
func WriteBinaryCatalog(fname string, cat *Catalog) error {
	f, err := os.Create(fname)
	if err != nil { return err }
	defer f.Close()

	w := bufio.NewWriter(f)
	if err = writeBinaryCatalog(w, binary.LittleEndian, cat); err != nil {
		return err
	}
	return w.Flush()
}

func writeBinaryCatalog(
	w io.Writer, order binary.ByteOrder, cat *Catalog,
) error {
	if cat.Types != nil && len(cat.Types) != len(cat.Points) {
		return fmt.Errorf(
			"Catalog has %d points but %d types.",
			len(cat.Points), len(cat.Types),
		)
	}

	flag := littleEndianFlag
	if order == binary.BigEndian { flag = bigEndianFlag }
	typed := int32(0)
	if cat.Types != nil { typed = 1 }

	xs := make([][3]float32, len(cat.Points))
	for i, p := range cat.Points {
		for k := 0; k < 3; k++ { xs[i][k] = float32(p[k]) }
	}

	if err := binary.Write(w, order, flag); err != nil { return err }
	if err := binary.Write(w, order, typed); err != nil { return err }
	if err := binary.Write(w, order, int64(len(xs))); err != nil { return err }
	if err := binary.Write(w, order, xs); err != nil { return err }

	if cat.Types != nil {
		ts := make([]int32, len(cat.Types))
		for i := range ts { ts[i] = int32(cat.Types[i]) }
		if err := binary.Write(w, order, ts); err != nil { return err }
	}
	return nil
}

// readEndianness reads the leading endianness flag of a binary file.
func readEndianness(r io.Reader) (binary.ByteOrder, error) {
	var flag int32
	if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
		return nil, err
	}

	// Both flag values are symmetric under byte swapping.
	switch flag {
	case littleEndianFlag:
		return binary.LittleEndian, nil
	case bigEndianFlag:
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("unrecognized endianness flag, %d", flag)
}
