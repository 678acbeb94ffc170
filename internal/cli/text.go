package cli

import (
	"strings"
)

// DefaultVPNName is shown in the examples when no VPN container is configured
const DefaultVPNName = "your_vpn_container_name"

const examplesTemplate = `
port.mapping examples for docker-compose.yml:

1. A service using the VPN container network:
services:
  my_service1:
    environment:
      - port.mapping=51820
    network_mode: service:{{vpn}}

my_service1 shares the network of {{vpn}}. port.mapping names 51820, the
external port {{vpn}} publishes for it. The variable may appear anywhere in
the environment block.

2. A service claiming several VPN ports:
services:
  my_service2:
    environment:
      - port.mapping=1194
      - port.mapping1=1195
      - port.mapping2=1196
    network_mode: service:{{vpn}}

my_service2 also uses the network of {{vpn}} and claims 1194, 1195 and 1196.
Numbered keys (port.mapping1, port.mapping2, ...) add more ports.

3. A service publishing its own port:
services:
  my_service3:
    ports:
      - 8923:8080

my_service3 does not use the VPN network. External port 8923 maps to
internal port 8080.

4. The VPN container:
services:
  {{vpn}}:
    ports:
      - 1194:1194
      - 1195:1195
      - 1196:1196
      - 51820:51820

{{vpn}} publishes 1194, 1195, 1196 and 51820 for the services attached to its
network, my_service1 and my_service2.

host.mapping examples for docker-compose.yml:

1. A host networked service exposing one port:
services:
  my_service1:
    environment:
      - host.mapping=8080
    network_mode: host

my_service1 runs on the host network and exposes 8080 on the host.

2. A host networked service exposing several ports:
services:
  my_service2:
    environment:
      - host.mapping=1194
      - host.mapping1=1195
      - host.mapping2=1196
    network_mode: host

my_service2 runs on the host network and exposes 1194, 1195 and 1196.
`

// ExamplesText returns the port.mapping and host.mapping examples using vpnName as
// the VPN container name
func ExamplesText(vpnName string) string {
	if strings.TrimSpace(vpnName) == "" {
		vpnName = DefaultVPNName
	}
	return strings.ReplaceAll(examplesTemplate, "{{vpn}}", vpnName)
}

// HelpText describes the command line
const HelpText = `Usage: dcpd [OPTION] [-f FILE]...

Print the port mappings of the configured docker compose files.

Options (mutually exclusive):
  -e, --sort-by-external-port  sort the table by external port
  -n, --sort-by-service-name   sort the table by service name
  -d, --debug                  write and show the debug report and the data export
  -s, --show-examples          show port.mapping and host.mapping examples
  -o, --output-html            regenerate the web dashboard data
  -V, --version                print the version
  -h, --help                   show this help

Other options:
  -v, --verbose                report progress; only with -o
  -f, --file FILE              compose file to read (repeatable)
      --config FILE            configuration file

Without an option the table is printed in output.default_sort_order.
`
