// Package wifi implements network association backends.
package wifi

import (
	"net"
)

// interfaceState reports whether the interface is up with an IPv4 address,
// and that address.
func interfaceState(name string) (bool, string) {
	iface, err := net.InterfaceByName(name)
	if err != nil || iface.Flags&net.FlagUp == 0 {
		return false, ""
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return false, ""
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return true, ip4.String()
			}
		}
	}
	return false, ""
}
