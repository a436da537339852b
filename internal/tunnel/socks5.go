package tunnel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
)

const (
	socksVersion    = 0x05
	methodNoAuth    = 0x00
	methodNone      = 0xFF
	cmdConnect      = 0x01
	addrIPv4        = 0x01
	addrDomain      = 0x03
	addrIPv6        = 0x04
	replyOK         = 0x00
	replyFailure    = 0x01
	replyNotAllowed = 0x02
	replyUnreach    = 0x04
)

// DialFunc opens an outbound connection, normally ssh.Client.Dial.
type DialFunc func(network, addr string) (net.Conn, error)

// negotiate accepts the no-auth method and reads a CONNECT request,
// returning its host:port.
func negotiate(conn io.ReadWriter) (string, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return "", fmt.Errorf("read greeting: %w", err)
	}
	if hdr[0] != socksVersion {
		return "", fmt.Errorf("unsupported socks version %d", hdr[0])
	}
	methods := make([]byte, hdr[1])
	if _, err := io.ReadFull(conn, methods); err != nil {
		return "", fmt.Errorf("read methods: %w", err)
	}
	noAuth := false
	for _, m := range methods {
		noAuth = noAuth || m == methodNoAuth
	}
	if !noAuth {
		conn.Write([]byte{socksVersion, methodNone})
		return "", errors.New("client requires authentication")
	}
	if _, err := conn.Write([]byte{socksVersion, methodNoAuth}); err != nil {
		return "", fmt.Errorf("write method: %w", err)
	}

	var req [4]byte
	if _, err := io.ReadFull(conn, req[:]); err != nil {
		return "", fmt.Errorf("read request: %w", err)
	}
	if req[0] != socksVersion {
		return "", fmt.Errorf("unsupported socks version %d", req[0])
	}
	if req[1] != cmdConnect {
		reply(conn, replyNotAllowed, nil)
		return "", fmt.Errorf("unsupported command %d", req[1])
	}

	var host string
	switch req[3] {
	case addrIPv4, addrIPv6:
		size := net.IPv4len
		if req[3] == addrIPv6 {
			size = net.IPv6len
		}
		ip := make([]byte, size)
		if _, err := io.ReadFull(conn, ip); err != nil {
			return "", fmt.Errorf("read address: %w", err)
		}
		host = net.IP(ip).String()
	case addrDomain:
		var n [1]byte
		if _, err := io.ReadFull(conn, n[:]); err != nil {
			return "", fmt.Errorf("read domain length: %w", err)
		}
		name := make([]byte, n[0])
		if _, err := io.ReadFull(conn, name); err != nil {
			return "", fmt.Errorf("read domain: %w", err)
		}
		host = string(name)
	default:
		reply(conn, replyFailure, nil)
		return "", fmt.Errorf("unsupported address type %d", req[3])
	}

	var port [2]byte
	if _, err := io.ReadFull(conn, port[:]); err != nil {
		return "", fmt.Errorf("read port: %w", err)
	}
	return net.JoinHostPort(host, strconv.Itoa(int(binary.BigEndian.Uint16(port[:])))), nil
}

// HandleConn serves one SOCKS5 client, relaying it through dial.
func HandleConn(conn net.Conn, dial DialFunc) error {
	defer conn.Close()

	target, err := negotiate(conn)
	if err != nil {
		return err
	}
	upstream, err := dial("tcp", target)
	if err != nil {
		reply(conn, replyUnreach, nil)
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer upstream.Close()
	reply(conn, replyOK, upstream.LocalAddr())

	done := make(chan struct{}, 2)
	go func() { io.Copy(upstream, conn); done <- struct{}{} }()
	go func() { io.Copy(conn, upstream); done <- struct{}{} }()
	<-done
	return nil
}

func reply(w io.Writer, code byte, bind net.Addr) {
	msg := []byte{socksVersion, code, 0x00, addrIPv4, 0, 0, 0, 0, 0, 0}
	if tcp, ok := bind.(*net.TCPAddr); ok {
		if ip4 := tcp.IP.To4(); ip4 != nil {
			copy(msg[4:8], ip4)
		}
		binary.BigEndian.PutUint16(msg[8:10], uint16(tcp.Port))
	}
	w.Write(msg)
}
