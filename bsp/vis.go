// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"github.com/pkg/errors"
)

// BytesPerSet returns the padded size of one leaf set for n leaves. The
// raw bit count is rounded up to whole bytes, tripled and aligned to four
// bytes.
func BytesPerSet(n int) int {
	return ((n+7)/8*3 + 3) &^ 3
}

func setBit(set []byte, i int) {
	set[i>>3] |= 1 << (i & 7)
}

func testBit(set []byte, i int) bool {
	return set[i>>3]&(1<<(i&7)) != 0
}

// buildTable concatenates the leaf sets. It returns the table and the
// offset of every set in it.
func buildTable(sets [][]byte, bps int, compress bool) ([]byte, []int) {
	offsets := make([]int, len(sets))
	if !compress {
		table := make([]byte, len(sets)*bps)
		for i, s := range sets {
			offsets[i] = i * bps
			copy(table[i*bps:(i+1)*bps], s)
		}
		return table, offsets
	}
	var table []byte
	for i, s := range sets {
		offsets[i] = len(table)
		table = CompressVis(table, s[:bps])
	}
	return table, offsets
}

// CompressVis appends the zero run length encoding of set to dst. Every
// zero byte is followed by the length of the zero run it starts, at most
// 255.
func CompressVis(dst, set []byte) []byte {
	for i := 0; i < len(set); i++ {
		dst = append(dst, set[i])
		if set[i] != 0 {
			continue
		}
		run := 1
		for i+1 < len(set) && set[i+1] == 0 && run < 255 {
			i++
			run++
		}
		dst = append(dst, byte(run))
	}
	return dst
}

// DecompressVis expands a zero run length encoded set of row bytes.
func DecompressVis(in []byte, row int) ([]byte, error) {
	// 'in' is compressed and looks like
	// 70550311
	// and gets uncompressed to
	// 700000500011	(7 5x0 5 3x0 1 1)
	out := make([]byte, 0, row)
	for i := 0; i < len(in) && len(out) < row; i++ {
		if in[i] != 0 {
			out = append(out, in[i])
			continue
		}
		i++
		if i >= len(in) {
			return nil, errors.New("bsp: truncated zero run in vis data")
		}
		for c := in[i]; c > 0; c-- {
			out = append(out, 0)
		}
	}
	if len(out) < row {
		return nil, errors.Errorf("bsp: vis data expands to %d bytes, want %d", len(out), row)
	}
	return out[:row], nil
}
