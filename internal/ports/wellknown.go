package ports

var wellKnownPorts = map[Port]string{
	20:    "FTP Data",
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	67:    "DHCP",
	69:    "TFTP",
	80:    "HTTP",
	110:   "POP3",
	123:   "NTP",
	137:   "NetBIOS Name",
	138:   "NetBIOS Datagram",
	139:   "NetBIOS Session",
	143:   "IMAP",
	161:   "SNMP",
	389:   "LDAP",
	443:   "HTTPS",
	445:   "SMB",
	465:   "SMTPS",
	514:   "Syslog",
	548:   "AFP",
	587:   "SMTP Submission",
	631:   "IPP",
	636:   "LDAPS",
	853:   "DNS over TLS",
	873:   "rsync",
	993:   "IMAPS",
	995:   "POP3S",
	1080:  "SOCKS",
	1194:  "OpenVPN",
	1433:  "MSSQL",
	1521:  "Oracle DB",
	1883:  "MQTT",
	1900:  "SSDP",
	2049:  "NFS",
	2375:  "Docker",
	2376:  "Docker TLS",
	3000:  "Grafana",
	3306:  "MySQL",
	3389:  "RDP",
	5000:  "Docker Registry",
	5353:  "mDNS",
	5432:  "PostgreSQL",
	5672:  "AMQP",
	5900:  "VNC",
	6379:  "Redis",
	6881:  "BitTorrent",
	7878:  "Radarr",
	8080:  "HTTP Alternate",
	8081:  "HTTP Alternate",
	8096:  "Jellyfin",
	8123:  "Home Assistant",
	8384:  "Syncthing",
	8443:  "HTTPS Alternate",
	8686:  "Lidarr",
	8883:  "MQTT TLS",
	8989:  "Sonarr",
	9000:  "Portainer",
	9090:  "Prometheus",
	9091:  "Transmission",
	9117:  "Jackett",
	9200:  "Elasticsearch",
	9696:  "Prowlarr",
	11211: "Memcached",
	15672: "RabbitMQ Management",
	22000: "Syncthing Transfer",
	27017: "MongoDB",
	32400: "Plex",
	51413: "Transmission Peer",
	51820: "WireGuard",
}

// MappedApp returns the well-known application for a port, or "" when unknown
func MappedApp(port Port) string {
	return wellKnownPorts[port]
}
