package pipeline

import (
	"errors"
	"io"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/docker"
	"github.com/threatflux/dockerComposePortsDump/internal/output"
)

// Artifact file names inside output.data_dir
const (
	FilePortsCSV          = "dcpd_ports.csv"
	FileHostNetworkingCSV = "dcpd_host_networking.csv"
	FileMetadataJSON      = "dcpd_html.json"
	FilePortsJSON         = "dcpd_ports.json"
	FileStats             = "dcpd_stats.txt"
	FileDockerPS          = "dcpd_docker_ps.csv"
	FileDockerStats       = "dcpd_docker_stats.txt"
	FileDockerInspect     = "dcpd_docker_inspect.csv"
)

// Artifacts lists every file a run writes
var Artifacts = []string{
	FilePortsCSV,
	FileHostNetworkingCSV,
	FileMetadataJSON,
	FilePortsJSON,
	FileStats,
	FileDockerPS,
	FileDockerStats,
	FileDockerInspect,
}

type artifact struct {
	name   string
	render func(io.Writer) error
}

func (r *Runner) writeArtifacts(snap *Snapshot) error {
	if err := config.MakeDirectory(r.cfg.Output.DataDir); err != nil {
		return err
	}

	list := []artifact{
		{FilePortsCSV, func(w io.Writer) error { return output.WritePortsCSV(w, snap.Records) }},
		{FileHostNetworkingCSV, func(w io.Writer) error { return output.WriteHostNetworkingCSV(w, snap.Result.HostNetwork) }},
		{FileMetadataJSON, func(w io.Writer) error { return output.WriteMetadata(w, snap.Metadata) }},
		{FilePortsJSON, func(w io.Writer) error { return output.WritePortsJSON(w, snap.Records) }},
		{FileStats, func(w io.Writer) error { return output.WriteStats(w, snap.Counters) }},
	}
	if r.collector != nil {
		list = append(list,
			artifact{FileDockerPS, orError(snap, ErrKeyPS, func(w io.Writer) error { return docker.WritePSCSV(w, snap.Containers) })},
			artifact{FileDockerStats, orError(snap, ErrKeyStats, func(w io.Writer) error { return docker.WriteStatsTable(w, snap.Stats) })},
			artifact{FileDockerInspect, orError(snap, ErrKeyContainerPorts, func(w io.Writer) error {
				return docker.WriteContainerPortsCSV(w, snap.ContainerPorts)
			})},
		)
	}

	var errs []error
	for _, a := range list {
		if err := output.WriteFileAtomic(r.cfg.DataFile(a.name), a.render); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// orError renders the collector failure in place of the view
func orError(snap *Snapshot, key string, render func(io.Writer) error) func(io.Writer) error {
	msg, failed := snap.Errors[key]
	if !failed {
		return render
	}
	return func(w io.Writer) error {
		return docker.WriteError(w, errors.New(msg))
	}
}
