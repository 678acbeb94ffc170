// Package output renders resolved port records for terminals, files and the dashboard
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// NotAvailable is shown in the terminal table for empty ports
const NotAvailable = "N/A"

// MorePrompt is printed between pages
const MorePrompt = "-- more --"

// PortHeaders are the column headers shared by the table and the ports CSV
var PortHeaders = []string{"Service Name", "External Port", "Internal Port", "Port Mapping", "Mapped App"}

// HostHeaders are the host networking table headers
var HostHeaders = []string{"ID", "Service Name"}

func portOrNA(p ports.Port) string {
	if p.IsEmpty() {
		return NotAvailable
	}
	return p.String()
}

// WriteTable renders records as a column-aligned grid
func WriteTable(w io.Writer, records []ports.Record) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.ServiceName, portOrNA(r.ExternalPort), portOrNA(r.InternalPort), string(r.Source), r.MappedApp}
	}
	return WriteGrid(w, PortHeaders, rows)
}

// WriteHostTable renders the host-network services as a grid
func WriteHostTable(w io.Writer, records []ports.Record) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{fmt.Sprint(i + 1), r.ServiceName}
	}
	return WriteGrid(w, HostHeaders, rows)
}

// WriteGrid renders rows under headers as a bordered grid
func WriteGrid(w io.Writer, headers []string, rows [][]string) error {
	bw := bufio.NewWriter(w)
	table := tablewriter.NewWriter(bw)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetRowLine(len(rows) > 0)
	table.AppendBulk(rows)
	table.Render()
	return bw.Flush()
}

// Page copies text to w, pausing every linesPerPage lines until a line is read from
// in. Entering "q" stops output; a closed input prints the rest without pausing.
// linesPerPage <= 0 disables paging.
func Page(w io.Writer, in io.Reader, text string, linesPerPage int) error {
	if linesPerPage <= 0 || in == nil {
		_, err := io.WriteString(w, text)
		return err
	}

	lines := strings.SplitAfter(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	reader := bufio.NewReader(in)
	interactive := true
	for i, l := range lines {
		if interactive && i > 0 && i%linesPerPage == 0 {
			if _, err := fmt.Fprint(w, MorePrompt); err != nil {
				return err
			}
			answer, err := reader.ReadString('\n')
			if _, werr := fmt.Fprintln(w); werr != nil {
				return werr
			}
			if strings.EqualFold(strings.TrimSpace(answer), "q") {
				return nil
			}
			if err != nil {
				interactive = false
			}
		}
		if _, err := io.WriteString(w, l); err != nil {
			return err
		}
	}
	return nil
}
