package fasta

import (
	"bufio"
	"io"
	"os"
)

// DefaultLineWidth is the sequence line width used for temporary
// single-record files handed to the aligner.
const DefaultLineWidth = 60

// Wrap cuts seq into lines of at most width characters. An empty sequence
// yields no lines; width <= 0 returns seq unwrapped.
func Wrap(seq string, width int) []string {
	if seq == "" {
		return nil
	}
	if width <= 0 {
		return []string{seq}
	}
	lines := make([]string, 0, (len(seq)+width-1)/width)
	for i := 0; i < len(seq); i += width {
		end := i + width
		if end > len(seq) {
			end = len(seq)
		}
		lines = append(lines, seq[i:end])
	}
	return lines
}

func WriteRecord(w io.Writer, rec Record, width int) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(">" + rec.ID + "\n"); err != nil {
		return err
	}
	for _, line := range Wrap(rec.Seq, width) {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func WriteRecordFile(path string, rec Record, width int) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := WriteRecord(f, rec, width); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
