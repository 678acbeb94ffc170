package models

import (
	"strings"

	"github.com/threatflux/dockerComposePortsDump/internal/docker"
	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// Snapshot table names
const (
	TableServiceInfo    = "service_info"
	TablePortMappings   = "port_mappings"
	TableHostNetworking = "host_networking"
	TableContainerPorts = "container_ports"
)

// SnapshotTables lists the tables that may be read through the API
var SnapshotTables = []string{TableContainerPorts, TableHostNetworking, TablePortMappings, TableServiceInfo}

// ServiceInfo is one resolved port record
type ServiceInfo struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	ServiceName    string `json:"service_name" gorm:"not null;index"`
	ExternalPort   *int   `json:"external_port"`
	InternalPort   *int   `json:"internal_port"`
	HasPortMapping bool   `json:"has_port_mapping" gorm:"default:false"`
	MappingSource  string `json:"mapping_source" gorm:"size:32"`
	MappedApp      string `json:"mapped_app"`
}

// TableName returns the table name for the ServiceInfo model
func (ServiceInfo) TableName() string {
	return TableServiceInfo
}

// PortMapping lists the services that claimed a VPN published port
type PortMapping struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	ExternalPort  int    `json:"external_port" gorm:"not null"`
	MappingValues string `json:"mapping_values"`
}

// TableName returns the table name for the PortMapping model
func (PortMapping) TableName() string {
	return TablePortMappings
}

// HostNetworking is a service running with network_mode: host
type HostNetworking struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ServiceName string `json:"service_name" gorm:"not null"`
}

// TableName returns the table name for the HostNetworking model
func (HostNetworking) TableName() string {
	return TableHostNetworking
}

// ContainerPort is a published port or a mapping env var of a running container
type ContainerPort struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	ContainerName string `json:"container_name" gorm:"not null"`
	InternalPort  string `json:"internal_port"`
	ExternalPort  string `json:"external_port"`
	MappingName   string `json:"mapping_name"`
	MappingValue  string `json:"mapping_value"`
	Protocol      string `json:"protocol" gorm:"size:8"`
}

// TableName returns the table name for the ContainerPort model
func (ContainerPort) TableName() string {
	return TableContainerPorts
}

// Snapshot holds the rows of one regeneration
type Snapshot struct {
	Services       []ServiceInfo
	PortMappings   []PortMapping
	HostNetworking []HostNetworking
	ContainerPorts []ContainerPort
}

// NewSnapshot converts a resolution result and the collected container ports into table rows
func NewSnapshot(result ports.Result, containerPorts []docker.ContainerPort) Snapshot {
	var s Snapshot
	for _, r := range result.Records {
		s.Services = append(s.Services, ServiceInfo{
			ServiceName:    r.ServiceName,
			ExternalPort:   portPtr(r.ExternalPort),
			InternalPort:   portPtr(r.InternalPort),
			HasPortMapping: r.Source == ports.SourceVPNShared,
			MappingSource:  string(r.Source),
			MappedApp:      r.MappedApp,
		})
	}
	for _, m := range result.VPNMappings() {
		s.PortMappings = append(s.PortMappings, PortMapping{
			ExternalPort:  int(m.ExternalPort),
			MappingValues: strings.Join(m.Services, ","),
		})
	}
	for _, h := range result.HostNetwork {
		s.HostNetworking = append(s.HostNetworking, HostNetworking{ServiceName: h.ServiceName})
	}
	for _, p := range containerPorts {
		s.ContainerPorts = append(s.ContainerPorts, ContainerPort{
			ContainerName: p.ContainerName,
			InternalPort:  p.InternalPort,
			ExternalPort:  p.ExternalPort,
			MappingName:   p.MappingName,
			MappingValue:  p.MappingValue,
			Protocol:      p.Protocol,
		})
	}
	return s
}

func portPtr(p ports.Port) *int {
	if p.IsEmpty() {
		return nil
	}
	v := int(p)
	return &v
}
