// Package net implements the kernel's Ethernet transport and socket-set
// collaborator on top of gvisor's userland TCP/IP stack, standing in for
// the USB-Ethernet adapter and smoltcp socket set the original kernel used.
package net

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdnet "net"
	"sync"
	"time"

	"github.com/relayd/aegis/internal/config"

	"gvisor.dev/gvisor/pkg/buffer"
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"
	"gvisor.dev/gvisor/pkg/tcpip/link/channel"
	"gvisor.dev/gvisor/pkg/tcpip/link/ethernet"
	"gvisor.dev/gvisor/pkg/tcpip/network/arp"
	"gvisor.dev/gvisor/pkg/tcpip/network/ipv4"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
	"gvisor.dev/gvisor/pkg/tcpip/transport/tcp"
	"gvisor.dev/gvisor/pkg/tcpip/transport/udp"
	"gvisor.dev/gvisor/pkg/waiter"
)

const nicID tcpip.NICID = 1

// ErrInvalidSocket is returned when a handle does not name a live socket.
var ErrInvalidSocket = errors.New("net: invalid socket")

// ErrUnknownTransport is returned when AddSocket is asked for a transport
// protocol other than "tcp" or "udp".
var ErrUnknownTransport = errors.New("net: unknown transport")

// NetStack is the kernel's Ethernet transport plus socket set: one
// simulated NIC, and a table of open transport-layer endpoints addressed by
// small integer handles (as the syscall ABI's sock-* operations expect).
type NetStack struct {
	stack *stack.Stack
	link  *channel.Endpoint

	mu      sync.Mutex
	sockets map[int]*Socket
	free    []int

	ports   map[uint16]bool
	nextEph uint16
}

// New creates a NetStack with one NIC at mac/addr/prefixLen and no open
// sockets.
func New(mac stdnet.HardwareAddr, addr stdnet.IP, prefixLen int) (*NetStack, error) {
	link := channel.New(256, config.MTU+header.EthernetMinimumSize, tcpip.LinkAddress(string(mac)))
	ep := ethernet.New(link)

	s := stack.New(stack.Options{
		NetworkProtocols:   []stack.NetworkProtocolFactory{ipv4.NewProtocol, arp.NewProtocol},
		TransportProtocols: []stack.TransportProtocolFactory{tcp.NewProtocol, udp.NewProtocol},
	})

	if err := s.CreateNIC(nicID, ep); err != nil {
		return nil, fmt.Errorf("net: create nic: %s", err)
	}

	if err := s.AddProtocolAddress(nicID, tcpip.ProtocolAddress{
		Protocol: ipv4.ProtocolNumber,
		AddressWithPrefix: tcpip.AddressWithPrefix{
			Address:   addrFrom4(addr),
			PrefixLen: prefixLen,
		},
	}, stack.AddressProperties{}); err != nil {
		return nil, fmt.Errorf("net: add address: %s", err)
	}

	s.SetRouteTable([]tcpip.Route{{Destination: header.IPv4EmptySubnet, NIC: nicID}})

	return &NetStack{
		stack:   s,
		link:    link,
		sockets: make(map[int]*Socket),
		ports:   make(map[uint16]bool),
		nextEph: config.EphemeralPortLow,
	}, nil
}

func addrFrom4(ip stdnet.IP) tcpip.Address {
	ip4 := ip.To4()

	var b [4]byte

	copy(b[:], ip4)

	return tcpip.AddrFrom4(b)
}

// InjectInbound delivers a raw Ethernet frame received from the simulated
// hardware into the stack.
func (n *NetStack) InjectInbound(frame []byte) {
	pkt := stack.NewPacketBuffer(stack.PacketBufferOptions{
		Payload: buffer.MakeWithData(append([]byte(nil), frame...)),
	})
	n.link.InjectInbound(0, pkt)
	pkt.DecRef()
}

// OutboundFrame returns the next Ethernet frame the stack has queued for
// transmission over the simulated hardware, blocking until ctx is done if
// none is available. It returns nil if ctx ends first.
func (n *NetStack) OutboundFrame(ctx context.Context) []byte {
	pkt := n.link.ReadContext(ctx)
	if pkt == nil {
		return nil
	}

	frame := append([]byte(nil), pkt.ToView().AsSlice()...)
	pkt.DecRef()

	return frame
}

// Poll lets the stack service any work made possible by frames injected
// since the last call. gvisor drives the state machine from its own
// goroutines as frames arrive, so unlike the smoltcp-based original this is
// a no-op; it exists so the syscall layer can call it uniformly without
// caring which network stack backs it.
func (n *NetStack) Poll() {}

// PollDelay reports how long the caller may wait before calling Poll again
// without missing time-driven work (retransmit timers, delayed ACKs). Since
// gvisor schedules those internally, this always returns the kernel's
// scheduling tick.
func (n *NetStack) PollDelay() time.Duration {
	return config.Tick
}

// AddSocket creates a new transport-layer endpoint ("tcp" or "udp") and
// returns its handle.
func (n *NetStack) AddSocket(transport string) (int, error) {
	var proto tcpip.TransportProtocolNumber

	switch transport {
	case "tcp":
		proto = tcp.ProtocolNumber
	case "udp":
		proto = udp.ProtocolNumber
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}

	var wq waiter.Queue

	ep, terr := n.stack.NewEndpoint(proto, ipv4.ProtocolNumber, &wq)
	if terr != nil {
		return 0, fmt.Errorf("net: new endpoint: %s", terr)
	}

	sock := &Socket{ep: ep, wq: &wq}

	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.free) > 0 {
		h := n.free[len(n.free)-1]
		n.free = n.free[:len(n.free)-1]
		n.sockets[h] = sock

		return h, nil
	}

	h := len(n.sockets)
	n.sockets[h] = sock

	return h, nil
}

// Release closes and removes the socket named by handle. It is a no-op if
// handle does not name a live socket, since a process exiting twice over
// (or closing an already-closed descriptor) must not panic the kernel.
func (n *NetStack) Release(handle int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sock, ok := n.sockets[handle]
	if !ok {
		return
	}

	sock.ep.Close()
	delete(n.sockets, handle)
	n.free = append(n.free, handle)
}

// WithSocket runs fn with the socket named by handle, or returns
// ErrInvalidSocket if there is none.
func (n *NetStack) WithSocket(handle int, fn func(*Socket) error) error {
	n.mu.Lock()
	sock, ok := n.sockets[handle]
	n.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidSocket, handle)
	}

	return fn(sock)
}

// MarkPort reserves port so GetEphemeralPort will not hand it out.
func (n *NetStack) MarkPort(port uint16) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.ports[port] = true
}

// ErasePort releases a port reserved by MarkPort.
func (n *NetStack) ErasePort(port uint16) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.ports, port)
}

// GetEphemeralPort returns the next unreserved port in the ephemeral range,
// marking it reserved.
func (n *NetStack) GetEphemeralPort() (uint16, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i := 0; i < (config.EphemeralPortHigh - config.EphemeralPortLow + 1); i++ {
		port := n.nextEph

		if n.nextEph == config.EphemeralPortHigh {
			n.nextEph = config.EphemeralPortLow
		} else {
			n.nextEph++
		}

		if !n.ports[port] {
			n.ports[port] = true
			return port, nil
		}
	}

	return 0, fmt.Errorf("net: no ephemeral ports available")
}

// Socket is one transport-layer endpoint: a TCP or UDP connection or
// listener.
type Socket struct {
	ep tcpip.Endpoint
	wq *waiter.Queue
}

// Connect begins connecting to addr:port. For UDP this simply associates
// the endpoint with a default destination; for TCP it begins the
// handshake, which completes asynchronously.
func (s *Socket) Connect(addr stdnet.IP, port uint16) error {
	terr := s.ep.Connect(tcpip.FullAddress{NIC: nicID, Addr: addrFrom4(addr), Port: port})
	if terr == nil {
		return nil
	}

	if _, ok := terr.(*tcpip.ErrConnectStarted); ok { //nolint:errorlint
		return nil
	}

	return fmt.Errorf("net: connect: %s", terr)
}

// Bind associates the endpoint with a local port.
func (s *Socket) Bind(port uint16) error {
	if terr := s.ep.Bind(tcpip.FullAddress{NIC: nicID, Port: port}); terr != nil {
		return fmt.Errorf("net: bind: %s", terr)
	}

	return nil
}

// Listen puts a bound TCP endpoint into the listening state.
func (s *Socket) Listen(backlog int) error {
	if terr := s.ep.Listen(backlog); terr != nil {
		return fmt.Errorf("net: listen: %s", terr)
	}

	return nil
}

// Send writes data to the endpoint. It never blocks: if the endpoint's
// buffer is full, it returns (0, nil), matching the syscall ABI's
// non-blocking send semantics.
func (s *Socket) Send(data []byte) (int, error) {
	n, terr := s.ep.Write(bytes.NewReader(data), tcpip.WriteOptions{})
	if terr != nil {
		if isWouldBlock(terr) {
			return 0, nil
		}

		return 0, fmt.Errorf("net: write: %s", terr)
	}

	return int(n), nil
}

// Recv reads data from the endpoint into buf. It never blocks: if nothing
// is available, it returns (0, nil).
func (s *Socket) Recv(buf []byte) (int, error) {
	w := tcpip.SliceWriter(buf)

	res, terr := s.ep.Read(&w, tcpip.ReadOptions{})
	if terr != nil {
		if isWouldBlock(terr) {
			return 0, nil
		}

		return 0, fmt.Errorf("net: read: %s", terr)
	}

	return res.Count, nil
}

// Status reports whether the socket is ready to read and whether it is ready
// to write, via gvisor's readiness mask -- the basis for the syscall ABI's
// sock-status operation. Error conditions are not reported.
func (s *Socket) Status() (readable, writable bool) {
	mask := s.ep.Readiness(waiter.ReadableEvents | waiter.WritableEvents)
	return mask&waiter.ReadableEvents != 0, mask&waiter.WritableEvents != 0
}

func isWouldBlock(err tcpip.Error) bool {
	_, ok := err.(*tcpip.ErrWouldBlock) //nolint:errorlint
	return ok
}
