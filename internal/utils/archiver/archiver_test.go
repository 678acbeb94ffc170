package archiver

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		err      error
	}{
		{"dcpd_ports.csv", "dcpd_ports.csv", nil},
		{"data/./dcpd_stats.txt", "data/dcpd_stats.txt", nil},
		{"../etc/passwd", "", ErrPathTraversal},
		{"data/../../x", "", ErrPathTraversal},
	}

	for _, tc := range testCases {
		got, err := SanitizePath(tc.input)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, got)
	}
}

func TestArchiveEntries_RoundTrip(t *testing.T) {
	entries := []Entry{
		{Name: "dcpd_ports.csv", Data: []byte("Service Name,External Port\n")},
		{Name: "dcpd_debug.txt", Data: []byte("HOME: /home/alice\n")},
		{Name: "docker.db", Data: []byte("binary")},
	}
	opts := ArchiveOptions{
		Compression:  CompressionGzip,
		ExcludeFiles: []string{"*.db"},
		Transform: func(name string, data []byte) []byte {
			return bytes.ReplaceAll(data, []byte("alice"), []byte("[REDACTED]"))
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ArchiveEntries(&buf, entries, opts))

	got, err := ReadEntries(bytes.NewReader(buf.Bytes()), opts)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "dcpd_ports.csv", got[0].Name)
	assert.Equal(t, "HOME: /home/[REDACTED]\n", string(got[1].Data))

	names, err := ListArchiveContents(bytes.NewReader(buf.Bytes()), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"dcpd_ports.csv", "dcpd_debug.txt"}, names)
}

func TestArchiveEntries_RejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	err := ArchiveEntries(&buf, []Entry{{Name: "../../evil", Data: []byte("x")}}, DefaultArchiveOptions)
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestArchiveDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".a.json.123.tmp"), []byte("partial"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	opts := ArchiveOptions{Compression: CompressionNone, IncludeFiles: []string{"*.csv", "*.json"}}
	var buf bytes.Buffer
	require.NoError(t, ArchiveDir(&buf, dir, opts))

	names, err := ListArchiveContents(&buf, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.csv"}, names)
}

func TestReadEntries_Invalid(t *testing.T) {
	_, err := ReadEntries(strings.NewReader("not gzip"), DefaultArchiveOptions)
	assert.ErrorIs(t, err, ErrInvalidArchive)

	var buf bytes.Buffer
	require.NoError(t, ArchiveEntries(&buf, nil, DefaultArchiveOptions))
	_, err = ReadEntries(&buf, DefaultArchiveOptions)
	assert.ErrorIs(t, err, ErrEmptyArchive)
}

func TestSealOpen(t *testing.T) {
	plaintext := []byte("tar.gz bytes")

	var sealed bytes.Buffer
	require.NoError(t, Seal(&sealed, plaintext, "correct horse"))
	assert.True(t, strings.HasPrefix(sealed.String(), sealMagic))
	assert.NotContains(t, sealed.String(), "tar.gz bytes")

	got, err := Open(bytes.NewReader(sealed.Bytes()), "correct horse")
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	_, err = Open(bytes.NewReader(sealed.Bytes()), "wrong")
	assert.ErrorIs(t, err, ErrDecrypt)

	tampered := append([]byte(nil), sealed.Bytes()...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = Open(bytes.NewReader(tampered), "correct horse")
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Open(strings.NewReader("short"), "correct horse")
	assert.ErrorIs(t, err, ErrInvalidArchive)

	assert.ErrorIs(t, Seal(&sealed, plaintext, ""), ErrNoPassword)
}
