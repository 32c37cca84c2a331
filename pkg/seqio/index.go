package seqio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Composition is the per-sequence character breakdown stored in the
// sequence index. Counting is case-insensitive.
type Composition struct {
	Length     int64
	A          int64
	C          int64
	G          int64
	T          int64
	N          int64
	OtherIUPAC int64
	Gap        int64
	Missing    int64
	Invalid    int64
}

// ACGT is the number of standard nucleotides, the basis of length filters.
func (c Composition) ACGT() int64 {
	return c.A + c.C + c.G + c.T
}

// indexColumns is the index file header. Gap and missing characters keep
// their literal names.
var indexColumns = []string{
	"strain", "length", "A", "C", "G", "T", "N", "other_IUPAC", "-", "?", "invalid_nucleotides",
}

// Index counts the composition of one sequence.
func Index(seq []byte) Composition {
	comp := Composition{Length: int64(len(seq))}
	for _, b := range seq {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		switch b {
		case 'A':
			comp.A++
		case 'C':
			comp.C++
		case 'G':
			comp.G++
		case 'T':
			comp.T++
		case 'N':
			comp.N++
		case 'R', 'Y', 'S', 'W', 'K', 'M', 'B', 'D', 'H', 'V':
			comp.OtherIUPAC++
		case '-':
			comp.Gap++
		case '?':
			comp.Missing++
		default:
			comp.Invalid++
		}
	}
	return comp
}

// BuildIndex streams a FASTA file and writes its composition index as a
// TSV. Returns the number of sequences indexed.
func BuildIndex(sequencesPath, outputPath string) (int64, error) {
	reader, err := OpenFASTA(sequencesPath)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create sequence index: %s", err)
	}
	defer out.Close()

	cw := csv.NewWriter(out)
	cw.Comma = '\t'
	if err := cw.Write(indexColumns); err != nil {
		return 0, fmt.Errorf("failed to write sequence index: %s", err)
	}

	var count int64
	for {
		seq, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
		comp := Index(seq.Seq)
		row := []string{
			seq.ID,
			strconv.FormatInt(comp.Length, 10),
			strconv.FormatInt(comp.A, 10),
			strconv.FormatInt(comp.C, 10),
			strconv.FormatInt(comp.G, 10),
			strconv.FormatInt(comp.T, 10),
			strconv.FormatInt(comp.N, 10),
			strconv.FormatInt(comp.OtherIUPAC, 10),
			strconv.FormatInt(comp.Gap, 10),
			strconv.FormatInt(comp.Missing, 10),
			strconv.FormatInt(comp.Invalid, 10),
		}
		if err := cw.Write(row); err != nil {
			return count, fmt.Errorf("failed to write sequence index: %s", err)
		}
		count++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return count, fmt.Errorf("failed to write sequence index: %s", err)
	}
	return count, nil
}

// LoadIndex reads a composition index TSV into a map keyed by identifier.
// Only the columns the filters use are required.
func LoadIndex(path string) (map[string]Composition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sequence index: %s", err)
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.Comma = '\t'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence index header: %s", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"strain", "A", "C", "G", "T", "invalid_nucleotides"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("failed to read sequence index: missing column %q", required)
		}
	}

	cell := func(row []string, name string) int64 {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return 0
		}
		n, err := strconv.ParseInt(row[i], 10, 64)
		if err != nil {
			return 0
		}
		return n
	}

	index := make(map[string]Composition)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sequence index: %s", err)
		}
		index[row[col["strain"]]] = Composition{
			Length:     cell(row, "length"),
			A:          cell(row, "A"),
			C:          cell(row, "C"),
			G:          cell(row, "G"),
			T:          cell(row, "T"),
			N:          cell(row, "N"),
			OtherIUPAC: cell(row, "other_IUPAC"),
			Gap:        cell(row, "-"),
			Missing:    cell(row, "?"),
			Invalid:    cell(row, "invalid_nucleotides"),
		}
	}
	return index, nil
}
