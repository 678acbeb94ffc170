package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// WritePortsJSON writes records as a JSON array; an empty list is written as []
func WritePortsJSON(w io.Writer, records []ports.Record) error {
	if records == nil {
		records = []ports.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// LastUpdatedFormat is the layout of Metadata.LastUpdated
const LastUpdatedFormat = "2006-01-02 15:04:05"

// Metadata is the styling and version blob read by the dashboard (dcpd_html.json)
type Metadata struct {
	BackgroundColor string `json:"background_color"`
	AccentColor     string `json:"accent_color"`
	TextColor       string `json:"text_color"`
	FontName        string `json:"font_name"`
	FontLink        string `json:"font_link"`
	FontSize        string `json:"font_size"`
	LastUpdated     string `json:"last_updated"`
	HTMLFileName    string `json:"html_file_name"`
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
}

// WriteMetadata writes m as indented JSON
func WriteMetadata(w io.Writer, m Metadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// ReadMetadata decodes a metadata blob
func ReadMetadata(r io.Reader) (Metadata, error) {
	var m Metadata
	err := json.NewDecoder(r).Decode(&m)
	return m, err
}

type font struct {
	family string
	link   string
}

var fonts = map[string]font{
	"roboto":     {"Roboto", "https://fonts.googleapis.com/css2?family=Roboto&display=swap"},
	"open_sans":  {"Open Sans", "https://fonts.googleapis.com/css2?family=Open+Sans&display=swap"},
	"lato":       {"Lato", "https://fonts.googleapis.com/css2?family=Lato&display=swap"},
	"montserrat": {"Montserrat", "https://fonts.googleapis.com/css2?family=Montserrat&display=swap"},
	"source":     {"Source Sans Pro", "https://fonts.googleapis.com/css2?family=Source+Sans+Pro&display=swap"},
	"ubuntu":     {"Ubuntu", "https://fonts.googleapis.com/css2?family=Ubuntu&display=swap"},
	"mono":       {"Roboto Mono", "https://fonts.googleapis.com/css2?family=Roboto+Mono&display=swap"},
}

var fontSizes = map[string]string{
	"small":  "14px",
	"medium": "16px",
	"large":  "18px",
}

// MetadataOptions are the inputs of NewMetadata; colors must already be resolved
type MetadataOptions struct {
	BackgroundColor string
	AccentColor     string
	TextColor       string
	FontName        string
	FontSize        string
	HTMLFileName    string
	CurrentVersion  string
	LatestVersion   string
	Now             time.Time
}

// NewMetadata maps font names and sizes to their CSS values. Unknown fonts are passed
// through with no link.
func NewMetadata(opts MetadataOptions) Metadata {
	m := Metadata{
		BackgroundColor: opts.BackgroundColor,
		AccentColor:     opts.AccentColor,
		TextColor:       opts.TextColor,
		FontName:        opts.FontName,
		FontSize:        opts.FontSize,
		HTMLFileName:    opts.HTMLFileName,
		CurrentVersion:  opts.CurrentVersion,
		LatestVersion:   opts.LatestVersion,
		LastUpdated:     opts.Now.Format(LastUpdatedFormat),
	}
	if f, ok := fonts[opts.FontName]; ok {
		m.FontName, m.FontLink = f.family, f.link
	}
	if size, ok := fontSizes[opts.FontSize]; ok {
		m.FontSize = size
	}
	if m.CurrentVersion == "" {
		m.CurrentVersion = NotAvailable
	}
	if m.LatestVersion == "" {
		m.LatestVersion = NotAvailable
	}
	return m
}
