package io

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/neighbors/locality"
)

const bondHeader = "# Column 0 - reference particle index\n" +
	"# Column 1 - neighbor particle index\n" +
	"# Column 2 - distance\n"

// WriteBonds writes one "ref neighbor distance" line per bond, preceded by a
// commented header.
func WriteBonds(w io.Writer, bonds []locality.NeighborBond) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bondHeader); err != nil { return err }
	for _, b := range bonds {
		_, err := fmt.Fprintf(bw, "%d %d %.8g\n", b.Ref, b.Neighbor, b.Distance)
		if err != nil { return err }
	}
	return bw.Flush()
}

// WriteBondsFile writes the bonds of a neighbor list to the given file.
func WriteBondsFile(fname string, nl *locality.NeighborList) error {
	f, err := os.Create(fname)
	if err != nil { return err }
	if err = WriteBonds(f, nl.Bonds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
