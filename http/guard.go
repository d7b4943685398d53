package http

import (
	"net"
	"net/netip"
	"strings"
	"syscall"

	"github.com/fwojciec/docxjson"
)

// checkHost rejects hosts outside the allow list. An empty list allows all.
func (f *BlobFetcher) checkHost(host string) error {
	if len(f.allowedHosts) == 0 {
		return nil
	}
	if _, ok := f.allowedHosts[strings.ToLower(host)]; !ok {
		return docxjson.Errorf(docxjson.EINVALID, "host %q is not allowed", host)
	}
	return nil
}

// denyPrivateControl is a net.Dialer Control hook that refuses connections to
// loopback, private, link-local and unspecified addresses. It runs after name
// resolution, so hostnames that resolve to internal addresses are caught too.
func denyPrivateControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if isPrivateAddr(addr) {
		return docxjson.Errorf(docxjson.EINVALID, "address %s is not allowed", addr)
	}
	return nil
}

func isPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}
