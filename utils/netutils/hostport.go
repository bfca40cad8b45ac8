package netutils

import (
	"net"
	"strconv"
)

// JoinHostPort is net.JoinHostPort for integer ports.
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
