package core

import (
	"archive/zip"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// NamedDocument is one per-student document headed for an archive.
// Err is set when the document could not be produced.
type NamedDocument struct {
	StudentID string
	Name      string
	Data      []byte
	Err       error
}

// EntryName returns the archive entry name for a student.
// It is a pure function of the identifier.
func EntryName(studentID string) string {
	return "report_" + sanitizeEntryComponent(studentID) + ".pdf"
}

func sanitizeEntryComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// ArchiveWriter appends named entries to a ZIP stream in call order.
// Entries are written through to the underlying writer as they are added.
type ArchiveWriter struct {
	zw       *zip.Writer
	modified time.Time
	names    map[string]int
	entries  int
}

// NewArchiveWriter starts an archive on w. Entries carry modified as their
// timestamp so identical inputs produce identical archives.
func NewArchiveWriter(w io.Writer, modified time.Time) *ArchiveWriter {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return &ArchiveWriter{zw: zw, modified: modified, names: make(map[string]int)}
}

// Append writes one entry. A repeated name gets a numeric suffix.
func (a *ArchiveWriter) Append(name string, data []byte) (string, error) {
	name = a.uniqueName(name)

	fw, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.modified,
	})
	if err != nil {
		return "", fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("write entry %s: %w", name, err)
	}
	// Push the compressed entry downstream instead of holding it until Close.
	if err := a.zw.Flush(); err != nil {
		return "", fmt.Errorf("flush entry %s: %w", name, err)
	}

	a.entries++
	return name, nil
}

func (a *ArchiveWriter) uniqueName(name string) string {
	a.names[name]++
	n := a.names[name]
	if n == 1 {
		return name
	}
	ext := ""
	base := name
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}

// Entries returns the number of entries appended.
func (a *ArchiveWriter) Entries() int {
	return a.entries
}

// Finalize writes the central directory. The archive is unusable without it.
func (a *ArchiveWriter) Finalize() error {
	if err := a.zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// PackageResult reports what PackageDocuments wrote.
type PackageResult struct {
	Entries []string
	Omitted []string
}

// PackageDocuments drains docs into a ZIP archive in arrival order.
//
// open is called once, when the first document without an error arrives, and
// returns the output stream. Documents with Err set are recorded as omitted
// and passed to onOmit. If no document succeeds, open is never called and
// ErrNoDocuments is returned. Write failures on the output are fatal.
func PackageDocuments(
	ctx context.Context,
	docs <-chan NamedDocument,
	modified time.Time,
	open func() (io.Writer, error),
	onOmit func(NamedDocument),
) (PackageResult, error) {
	var (
		result  PackageResult
		archive *ArchiveWriter
	)

	for {
		var (
			doc NamedDocument
			ok  bool
		)
		select {
		case <-ctx.Done():
			return result, PackagingError("package documents", "cancelled", ctx.Err())
		case doc, ok = <-docs:
		}
		if !ok {
			break
		}

		if doc.Err != nil {
			result.Omitted = append(result.Omitted, doc.StudentID)
			if onOmit != nil {
				onOmit(doc)
			}
			continue
		}

		if archive == nil {
			w, err := open()
			if err != nil {
				return result, PackagingError("package documents", "open output", err)
			}
			archive = NewArchiveWriter(w, modified)
		}

		name := doc.Name
		if name == "" {
			name = EntryName(doc.StudentID)
		}
		written, err := archive.Append(name, doc.Data)
		if err != nil {
			return result, PackagingError("package documents", "append entry", err)
		}
		result.Entries = append(result.Entries, written)
	}

	// A closed channel may mean the producer stopped on cancellation.
	if err := ctx.Err(); err != nil {
		return result, PackagingError("package documents", "cancelled", err)
	}

	if archive == nil {
		return result, RenderError("package documents", "nothing to package", ErrNoDocuments)
	}

	if err := archive.Finalize(); err != nil {
		return result, PackagingError("package documents", "finalize", err)
	}
	return result, nil
}
