package cli

// DefaultLocalPort computes the GUI port button's suggested local_port for
// a given remote port: 50000 + remotePort, saturating at 65535. The GUI
// shell itself is out of scope; this is the one function it is documented
// to call before invoking StartForward.
func DefaultLocalPort(remotePort uint16) uint16 {
	const offset = 50000
	sum := offset + uint32(remotePort)
	if sum > 65535 {
		return 65535
	}
	return uint16(sum)
}
