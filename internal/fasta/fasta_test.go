package fasta

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRecords(t *testing.T) {
	in := ">1qin some description\nDGKMK\nGLAF\n\n>1a9m\r\nIHGIGGFI\r\n>\nIGNORED\n>3ans x\nDWGGM"
	recs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d: %#v", len(recs), recs)
	}
	want := []Record{
		{ID: "1qin", Seq: "DGKMKGLAF"},
		{ID: "1a9m", Seq: "IHGIGGFI"},
		{ID: "3ans", Seq: "DWGGM"},
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Fatalf("record %d: got %#v want %#v", i, recs[i], want[i])
		}
	}
}

func TestParseEmptyInput(t *testing.T) {
	recs, err := Parse(strings.NewReader("\n\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}

func TestWrapRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 59, 60, 61, 119, 120, 121, 1000} {
		seq := strings.Repeat("ACDEFGHIKLMNPQRSTVWY", 60)[:n]
		lines := Wrap(seq, DefaultLineWidth)
		wantLines := (n + DefaultLineWidth - 1) / DefaultLineWidth
		if len(lines) != wantLines {
			t.Fatalf("len %d: expected %d lines, got %d", n, wantLines, len(lines))
		}
		for _, l := range lines {
			if len(l) > DefaultLineWidth {
				t.Fatalf("len %d: line longer than %d: %d", n, DefaultLineWidth, len(l))
			}
		}
		if strings.Join(lines, "") != seq {
			t.Fatalf("len %d: wrapped lines do not reassemble", n)
		}
	}
}

func TestWriteRecordThenParse(t *testing.T) {
	rec := Record{ID: "2xxx", Seq: strings.Repeat("GAVEDGATMTFF", 11)}
	var buf bytes.Buffer
	if err := WriteRecord(&buf, rec, DefaultLineWidth); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != ">2xxx" || len(lines) != 4 {
		t.Fatalf("unexpected layout: %q", buf.String())
	}
	recs, err := Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 1 || recs[0] != rec {
		t.Fatalf("unexpected records: %#v", recs)
	}
}

func TestReadFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqs.fasta.gz")
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, _ = gw.Write([]byte(">6mu3\nYAGYS\n"))
	_ = gw.Close()
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "6mu3" || recs[0].Seq != "YAGYS" {
		t.Fatalf("unexpected records: %#v", recs)
	}
}
