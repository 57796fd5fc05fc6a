/*
 * Copyright 2026 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package flow

import "strconv"

// protocolNames covers the protocols seen in practice; anything else
// falls back to the numeric form.
var protocolNames = map[uint8]string{
	1:   "ICMP",
	2:   "IGMP",
	6:   "TCP",
	17:  "UDP",
	47:  "GRE",
	50:  "ESP",
	51:  "AH",
	58:  "ICMPv6",
	89:  "OSPF",
	112: "VRRP",
	132: "SCTP",
}

// applicationNames maps well-known ports to service labels. Lookup
// order is destination port first, then source.
var applicationNames = map[uint16]string{
	20:    "FTP",
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	67:    "DHCP",
	68:    "DHCP",
	80:    "HTTP",
	110:   "POP3",
	123:   "NTP",
	143:   "IMAP",
	161:   "SNMP",
	162:   "SNMP",
	179:   "BGP",
	389:   "LDAP",
	443:   "HTTPS",
	445:   "SMB",
	465:   "SMTPS",
	514:   "Syslog",
	587:   "SMTP",
	636:   "LDAPS",
	993:   "IMAPS",
	995:   "POP3S",
	1433:  "MSSQL",
	1521:  "Oracle",
	3128:  "Proxy",
	3306:  "MySQL",
	3389:  "RDP",
	5060:  "SIP",
	5432:  "PostgreSQL",
	5671:  "AMQP",
	6379:  "Redis",
	8080:  "HTTP-Alt",
	8443:  "HTTPS-Alt",
	9092:  "Kafka",
	27017: "MongoDB",
}

// ProtocolName resolves an IP protocol number to its label.
func ProtocolName(protocol uint8) string {
	if name, ok := protocolNames[protocol]; ok {
		return name
	}

	return strconv.Itoa(int(protocol))
}

// ApplicationName guesses the service from the port pair, destination
// first.
func ApplicationName(srcPort, dstPort uint16) string {
	if name, ok := applicationNames[dstPort]; ok {
		return name
	}

	if name, ok := applicationNames[srcPort]; ok {
		return name
	}

	return ""
}
