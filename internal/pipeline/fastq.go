package pipeline

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// fastqScanBuffer matches the teacher's oversized scanner buffer for long
// read lengths.
const fastqScanBuffer = 10 * 1024 * 1024

// Record is one parsed FASTQ entry. ID excludes the leading '@'.
type Record struct {
	ID   string
	Seq  []byte
	Qual []byte
}

// openFastqGzip opens a gzip-compressed FASTQ file for streaming read.
// compress/gzip decodes concatenated ("multi-member") gzip streams by
// default, which is what long-read basecallers commonly emit.
func openFastqGzip(path string) (io.ReadCloser, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	gz, err := gzip.NewReader(fid)
	if err != nil {
		fid.Close()
		return nil, fmt.Errorf("reading gzip header of %s: %w", path, err)
	}
	return &gzipFile{fid: fid, gz: gz}, nil
}

type gzipFile struct {
	fid *os.File
	gz  *gzip.Reader
}

func (g *gzipFile) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipFile) Close() error {
	gzErr := g.gz.Close()
	fidErr := g.fid.Close()
	if gzErr != nil {
		return gzErr
	}
	return fidErr
}

// readFastq streams every record in path to records and returns the first
// open, parse, or read error. It does not close records; the caller does.
func readFastq(path string, records chan<- Record) error {
	rc, err := openFastqGzip(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, fastqScanBuffer), fastqScanBuffer)

	for {
		if !scanner.Scan() {
			break
		}
		header := scanner.Bytes()
		if len(header) == 0 {
			continue
		}
		if header[0] != '@' {
			return fmt.Errorf("malformed fastq record in %s: expected '@' header, got %q", path, header)
		}
		id := string(header[1:])

		if !scanner.Scan() {
			return fmt.Errorf("malformed fastq record %q in %s: missing sequence line", id, path)
		}
		seq := append([]byte(nil), scanner.Bytes()...)

		if !scanner.Scan() {
			return fmt.Errorf("malformed fastq record %q in %s: missing '+' line", id, path)
		}

		if !scanner.Scan() {
			return fmt.Errorf("malformed fastq record %q in %s: missing quality line", id, path)
		}
		qual := append([]byte(nil), scanner.Bytes()...)

		records <- Record{ID: id, Seq: seq, Qual: qual}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// writeFastqRecord appends one FASTQ entry (id, trimmed sequence, and the
// matching trimmed quality slice) to w.
func writeFastqRecord(w io.Writer, id string, seq, qual []byte) error {
	if _, err := fmt.Fprintf(w, "@%s\n", id); err != nil {
		return err
	}
	if _, err := w.Write(seq); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n+\n"); err != nil {
		return err
	}
	if _, err := w.Write(qual); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
