package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// fileSink writes the artifact to disk. The file is created on Begin, so a
// report that fails before its first byte leaves nothing behind.
type fileSink struct {
	// path overrides the artifact's own file name when set.
	path string
	// dir receives the artifact when path is empty.
	dir string

	written string
	file    *os.File
}

func (s *fileSink) Begin(a core.Artifact) (io.Writer, error) {
	target := s.path
	if target == "" {
		target = filepath.Join(s.dir, a.FileName)
	}

	f, err := os.Create(target)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", target, err)
	}
	s.file = f
	s.written = target
	return f, nil
}

// finish closes the file, removing it when the report did not complete.
func (s *fileSink) finish(genErr error) error {
	if s.file == nil {
		return genErr
	}

	closeErr := s.file.Close()
	s.file = nil
	if genErr == nil && closeErr == nil {
		return nil
	}

	_ = os.Remove(s.written)
	s.written = ""
	if genErr != nil {
		return genErr
	}
	return fmt.Errorf("close artifact: %w", closeErr)
}
