package topology

import (
	"net"
	"strconv"
	"strings"

	"github.com/bigtree-zedis/zedis-core/errs"
)

// ParsedAddress is one CLUSTER NODES address, per spec §4.7: host, port,
// and an optional cluster-bus port.
type ParsedAddress struct {
	Host      string
	Port      int
	BusPort   int
	HasBus    bool
}

// ParseAddress implements spec §4.7's address parser: split on "@" for the
// optional cluster-bus port, then on the last ":" for host/port, with
// bracketed IPv6 literal support.
func ParseAddress(raw string) (ParsedAddress, error) {
	hostPort := raw
	busPort := 0
	hasBus := false

	if at := strings.LastIndex(raw, "@"); at != -1 {
		hostPort = raw[:at]
		busStr := raw[at+1:]
		p, err := strconv.Atoi(busStr)
		if err != nil {
			return ParsedAddress{}, errs.Invalid("malformed cluster-bus port in address %q", raw)
		}
		busPort = p
		hasBus = true
	}

	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return ParsedAddress{}, errs.Invalid("malformed address %q", raw)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return ParsedAddress{}, errs.Invalid("malformed port in address %q", raw)
	}

	return ParsedAddress{Host: host, Port: port, BusPort: busPort, HasBus: hasBus}, nil
}
