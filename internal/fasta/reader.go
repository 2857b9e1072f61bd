// Package fasta reads multi-record FASTA files and writes single records
// back out with fixed-width sequence lines.
package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

type Record struct {
	ID  string
	Seq string
}

// Parse splits r on '>' record markers. The identifier is the first
// whitespace-delimited token of the header and the sequence is every
// following line joined with line breaks removed. Records with an empty
// header are skipped.
func Parse(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	var (
		records []Record
		cur     *Record
		seq     strings.Builder
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Seq = seq.String()
		records = append(records, *cur)
		cur = nil
		seq.Reset()
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, ">") {
			flush()
			fields := strings.Fields(line[1:])
			if len(fields) > 0 {
				cur = &Record{ID: fields[0]}
			}
		} else if cur != nil {
			seq.WriteString(strings.TrimSpace(line))
		}
		if err == io.EOF {
			break
		}
	}
	flush()
	return records, nil
}

// ReadFile parses path; "-" reads stdin and a .gz suffix is decompressed.
func ReadFile(path string) ([]Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	records, err := Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse fasta %s: %w", path, err)
	}
	return records, nil
}

func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
