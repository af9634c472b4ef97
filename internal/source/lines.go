package source

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"os"
)

// DefaultMaxLineBytes bounds a single log line. Longer lines are skipped.
const DefaultMaxLineBytes = 2 * 1024 * 1024

// Limits bounds how much of each file is read. Zero means unlimited, except
// MaxLineBytes which falls back to DefaultMaxLineBytes.
type Limits struct {
	MaxLineBytes    int
	MaxLinesPerFile int
	MaxBytesPerFile int64
}

func (l Limits) maxLine() int {
	if l.MaxLineBytes <= 0 {
		return DefaultMaxLineBytes
	}
	return l.MaxLineBytes
}

// Line is one physical line of a session log. Data is only valid until the
// next iteration step.
type Line struct {
	File  *DiscoveredFile
	Index int
	Data  []byte
	// Oversize is set when the line exceeded MaxLineBytes; Data is then empty.
	Oversize bool
}

// Lines returns a lazy sequence over every line of files, in file order.
// Each range over the sequence re-reads the files from the start. Files that
// cannot be opened or read are skipped from the point of failure.
func Lines(files []DiscoveredFile, lim Limits) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for i := range files {
			if !readLines(&files[i], lim, yield) {
				return
			}
		}
	}
}

// readLines streams one file. It returns false when the consumer stopped.
func readLines(df *DiscoveredFile, lim Limits, yield func(Line) bool) bool {
	f, err := os.Open(df.Path)
	if err != nil {
		return true
	}
	defer func() { _ = f.Close() }()

	stopped := false
	_ = eachLine(f, lim, func(idx int, data []byte, oversize bool) bool {
		if !yield(Line{File: df, Index: idx, Data: data, Oversize: oversize}) {
			stopped = true
			return false
		}
		return true
	})
	return !stopped
}

// eachLine calls fn for every line of r until fn returns false, the limits are
// reached or r is exhausted. A trailing line without a newline is delivered.
// The returned error is the first read failure other than io.EOF.
func eachLine(r io.Reader, lim Limits, fn func(idx int, data []byte, oversize bool) bool) error {
	if lim.MaxBytesPerFile > 0 {
		r = io.LimitReader(r, lim.MaxBytesPerFile)
	}

	maxLine := lim.maxLine()
	br := bufio.NewReaderSize(r, 64*1024)
	buf := make([]byte, 0, 64*1024)

	for idx := 0; lim.MaxLinesPerFile <= 0 || idx < lim.MaxLinesPerFile; idx++ {
		buf = buf[:0]
		oversize := false
		for {
			chunk, err := br.ReadSlice('\n')
			if !oversize {
				if len(buf)+len(chunk) > maxLine+1 { // +1 for the newline
					oversize = true
					buf = buf[:0]
				} else {
					buf = append(buf, chunk...)
				}
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if err != nil {
				if oversize || len(buf) > 0 {
					fn(idx, trimEOL(buf), oversize)
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			break
		}
		if !fn(idx, trimEOL(buf), oversize) {
			return nil
		}
	}
	return nil
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}
