package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// ErrBadHeader is returned when a ports CSV does not start with PortHeaders
var ErrBadHeader = errors.New("unexpected CSV header")

// WritePortsCSV writes one row per record in the fixed column order service name,
// external port, internal port, mapping source, mapped app. Empty ports are empty cells.
func WritePortsCSV(w io.Writer, records []ports.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PortHeaders); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.ServiceName, r.ExternalPort.String(), r.InternalPort.String(), string(r.Source), r.MappedApp}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPortsCSV parses a file written by WritePortsCSV
func ReadPortsCSV(r io.Reader) ([]ports.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(PortHeaders)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrBadHeader)
		}
		return nil, err
	}
	for i, h := range PortHeaders {
		if strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")) != h {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, header[i], h)
		}
	}

	var records []ports.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		external, err := ports.ParsePort(row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: external port: %w", line, err)
		}
		internal, err := ports.ParsePort(row[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: internal port: %w", line, err)
		}
		source, err := ports.ParseMappingSource(row[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, ports.Record{
			ServiceName:  row[0],
			ExternalPort: external,
			InternalPort: internal,
			Source:       source,
			MappedApp:    row[4],
		})
	}
	return records, nil
}

// WriteHostNetworkingCSV writes the host-network services with ids starting at 1
func WriteHostNetworkingCSV(w io.Writer, records []ports.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "service_name"}); err != nil {
		return err
	}
	for i, r := range records {
		if err := cw.Write([]string{strconv.Itoa(i + 1), r.ServiceName}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
