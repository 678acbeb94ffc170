// Package archiver bundles data files into tar archives for export
package archiver

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Common errors
var (
	// ErrPathTraversal indicates a potential path traversal attempt
	ErrPathTraversal = errors.New("path traversal attempt detected")

	// ErrInvalidArchive indicates an invalid or corrupt archive
	ErrInvalidArchive = errors.New("invalid or corrupt archive")

	// ErrCompressionFailed indicates compression failed
	ErrCompressionFailed = errors.New("archive compression failed")

	// ErrEmptyArchive indicates an empty archive
	ErrEmptyArchive = errors.New("empty archive")
)

// CompressionType represents the type of compression to use
type CompressionType string

const (
	// CompressionNone uses no compression
	CompressionNone CompressionType = "none"

	// CompressionGzip uses gzip compression
	CompressionGzip CompressionType = "gzip"
)

// ArchiveOptions contains options for creating and reading archives
type ArchiveOptions struct {
	// Compression specifies the compression type
	Compression CompressionType

	// IncludeFiles is a list of file patterns to include
	IncludeFiles []string

	// ExcludeFiles is a list of file patterns to exclude
	ExcludeFiles []string

	// Transform rewrites file contents before they are archived, e.g. to redact them
	Transform func(name string, data []byte) []byte
}

// DefaultArchiveOptions provides default options for archiving
var DefaultArchiveOptions = ArchiveOptions{
	Compression:  CompressionGzip,
	IncludeFiles: []string{"*"},
}

// Entry is one file of an archive
type Entry struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

// IsPathSafe checks if a path is safe from traversal attacks
func IsPathSafe(path string) bool {
	cleanPath := filepath.Clean(path)
	if filepath.IsAbs(cleanPath) && !filepath.IsAbs(path) {
		return false
	}
	return !strings.Contains(cleanPath, "..")
}

// SanitizePath sanitizes a path for use as an archive entry name
func SanitizePath(path string) (string, error) {
	if !IsPathSafe(path) {
		return "", ErrPathTraversal
	}
	cleanPath := filepath.Clean(path)
	return strings.TrimPrefix(cleanPath, string(filepath.Separator)), nil
}

// ArchiveEntries writes entries as a tar stream to w
func ArchiveEntries(w io.Writer, entries []Entry, options ArchiveOptions) (err error) {
	var gzipWriter *gzip.Writer
	finalWriter := w
	if options.Compression == CompressionGzip {
		gzipWriter = gzip.NewWriter(w)
		finalWriter = gzipWriter
	}
	tarWriter := tar.NewWriter(finalWriter)

	defer func() {
		if cerr := tarWriter.Close(); cerr != nil && err == nil {
			err = errors.Wrap(ErrCompressionFailed, cerr.Error())
		}
		if gzipWriter != nil {
			if cerr := gzipWriter.Close(); cerr != nil && err == nil {
				err = errors.Wrap(ErrCompressionFailed, cerr.Error())
			}
		}
	}()

	for _, entry := range entries {
		name, err := SanitizePath(entry.Name)
		if err != nil {
			return errors.Wrapf(err, "entry %q", entry.Name)
		}
		if !shouldIncludeFile(name, options.IncludeFiles, options.ExcludeFiles) {
			continue
		}
		data := entry.Data
		if options.Transform != nil {
			data = options.Transform(name, data)
		}
		modTime := entry.ModTime
		if modTime.IsZero() {
			modTime = time.Now()
		}

		header := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(data)),
			ModTime:  modTime,
			Typeflag: tar.TypeReg,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return errors.Wrapf(err, "failed to write header for %s", name)
		}
		if _, err := tarWriter.Write(data); err != nil {
			return errors.Wrapf(err, "failed to write %s", name)
		}
	}
	return nil
}

// ArchiveDir archives the regular files directly inside dir that match the options.
// Subdirectories are not descended into.
func ArchiveDir(w io.Writer, dir string, options ArchiveOptions) error {
	entries, err := ReadDir(dir, options)
	if err != nil {
		return err
	}
	return ArchiveEntries(w, entries, options)
}

// ReadDir loads the regular files directly inside dir that match the options, sorted
// by name
func ReadDir(dir string, options ArchiveOptions) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || !shouldIncludeFile(de.Name(), options.IncludeFiles, options.ExcludeFiles) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat %s", de.Name())
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", de.Name())
		}
		entries = append(entries, Entry{Name: de.Name(), Data: data, ModTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ReadEntries reads every regular file of a tar stream
func ReadEntries(src io.Reader, options ArchiveOptions) ([]Entry, error) {
	tarReader, closeFn, err := newTarReader(src, options)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var entries []Entry
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(ErrInvalidArchive, err.Error())
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if !IsPathSafe(header.Name) {
			return nil, errors.Wrapf(ErrPathTraversal, "entry %q", header.Name)
		}
		data, err := io.ReadAll(tarReader)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidArchive, err.Error())
		}
		entries = append(entries, Entry{Name: header.Name, Data: data, ModTime: header.ModTime})
	}

	if len(entries) == 0 {
		return nil, ErrEmptyArchive
	}
	return entries, nil
}

// ListArchiveContents lists the file names of a tar stream
func ListArchiveContents(src io.Reader, options ArchiveOptions) ([]string, error) {
	entries, err := ReadEntries(src, options)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

func newTarReader(src io.Reader, options ArchiveOptions) (*tar.Reader, func(), error) {
	if options.Compression != CompressionGzip {
		return tar.NewReader(src), func() {}, nil
	}
	gzipReader, err := gzip.NewReader(src)
	if err != nil {
		return nil, nil, errors.Wrap(ErrInvalidArchive, err.Error())
	}
	return tar.NewReader(gzipReader), func() { gzipReader.Close() }, nil
}

// shouldIncludeFile checks if a file should be included based on patterns
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		if matched, _ := filepath.Match(pattern, path); matched {
			return false
		}
	}
	if len(includePatterns) == 0 {
		return true
	}
	for _, pattern := range includePatterns {
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}
