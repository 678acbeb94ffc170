package docker

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// Column headers of the auxiliary artifacts
var (
	PSHeaders             = []string{"ID", "IMAGE", "COMMAND", "CREATED AT", "STATUS", "NAMES"}
	StatsHeaders          = []string{"NAME", "CPU %", "MEM USAGE / LIMIT", "NET I/O", "BLOCK I/O"}
	ContainerPortsHeaders = []string{"id", "container_name", "internal_port", "external_port", "mapping_name", "mapping_value", "protocol"}
)

// WritePSCSV writes the container list (dcpd_docker_ps.csv)
func WritePSCSV(w io.Writer, rows []ContainerRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PSHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.ID, r.Image, r.Command, r.CreatedAt, r.Status, r.Names}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStatsTable writes a tab aligned table like `docker stats --no-stream` (dcpd_docker_stats.txt)
func WriteStatsTable(w io.Writer, rows []StatsRow) error {
	tw := tabwriter.NewWriter(w, 0, 8, 3, ' ', 0)
	for i, h := range StatsHeaders {
		sep := "\t"
		if i == len(StatsHeaders)-1 {
			sep = "\n"
		}
		fmt.Fprint(tw, h, sep)
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.CPUPerc, r.MemUsage, r.NetIO, r.BlockIO)
	}
	return tw.Flush()
}

// WriteContainerPortsCSV writes the container ports table (dcpd_docker_inspect.csv) with ids from 1
func WriteContainerPortsCSV(w io.Writer, rows []ContainerPort) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ContainerPortsHeaders); err != nil {
		return err
	}
	for i, r := range rows {
		row := []string{strconv.Itoa(i + 1), r.ContainerName, r.InternalPort, r.ExternalPort, r.MappingName, r.MappingValue, r.Protocol}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteError renders a collector failure in place of an artifact body
func WriteError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "error: %v\n", err)
	return werr
}
