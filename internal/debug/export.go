package debug

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/utils/archiver"
)

// ExportBaseName is the export archive name before the optional seal extension
const ExportBaseName = "dcpd_export.tar.gz"

// ExportFileName returns the archive name for cfg: sealed exports end in .enc
func ExportFileName(cfg *config.Config) string {
	if cfg.Export.Password != "" {
		return ExportBaseName + archiver.SealedFileExt
	}
	return ExportBaseName
}

// ExportFiles are the data files included in an export
func ExportFiles() []string {
	return append(append([]string(nil), pipeline.Artifacts...), FileName)
}

// Export writes a gzipped tar of the redacted data files to w. With an export
// password the archive is sealed.
func Export(w io.Writer, cfg *config.Config) error {
	redactor := NewRedactor(cfg.Server.APIKey, cfg.Database.Password, cfg.Export.Password)
	opts := archiver.ArchiveOptions{
		Compression:  archiver.CompressionGzip,
		IncludeFiles: ExportFiles(),
		Transform:    redactor.Transform,
	}

	entries, err := archiver.ReadDir(cfg.Output.DataDir, opts)
	if err != nil {
		return errors.Wrap(err, "failed to collect export files")
	}
	if len(entries) == 0 {
		return errors.Wrapf(archiver.ErrEmptyArchive, "no data files in %s", cfg.Output.DataDir)
	}

	if cfg.Export.Password == "" {
		return archiver.ArchiveEntries(w, entries, opts)
	}

	var buf bytes.Buffer
	if err := archiver.ArchiveEntries(&buf, entries, opts); err != nil {
		return err
	}
	return archiver.Seal(w, buf.Bytes(), cfg.Export.Password)
}
