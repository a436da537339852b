// Package stream enumerates the transport kinds, KCP header obfuscations and
// Shadowsocks ciphers that a proxy profile may use. Slice order is the menu
// order shown to operators and never changes between calls.
package stream

import (
	"fmt"
	"strings"
)

type StreamType string

const (
	TCP       StreamType = "tcp"
	TCPHost   StreamType = "tcp_host"
	Socks     StreamType = "socks"
	SS        StreamType = "ss"
	MTProto   StreamType = "mtproto"
	H2        StreamType = "h2"
	WS        StreamType = "ws"
	QUIC      StreamType = "quic"
	KCP       StreamType = "kcp"
	KCPUTP    StreamType = "utp"
	KCPSRTP   StreamType = "srtp"
	KCPDTLS   StreamType = "dtls"
	KCPWechat StreamType = "wechat"
	KCPWG     StreamType = "wireguard"
)

var allStreamTypes = []StreamType{
	TCP, TCPHost, Socks, SS, MTProto, H2, WS, QUIC,
	KCP, KCPUTP, KCPSRTP, KCPDTLS, KCPWechat, KCPWG,
}

var menuStreams = []StreamType{
	KCPWG, KCPDTLS, KCPWechat, KCPUTP, KCPSRTP, MTProto, Socks, SS,
}

var headerTypes = []string{"none", "srtp", "utp", "wechat-video", "dtls", "wireguard"}

var ssMethods = []string{
	"aes-256-cfb", "aes-128-cfb", "chacha20",
	"chacha20-ietf", "aes-256-gcm", "aes-128-gcm", "chacha20-poly1305",
}

// List returns the stream types offered when switching a group's transport.
func List() []StreamType {
	return append([]StreamType(nil), menuStreams...)
}

// HeaderTypes returns the KCP header obfuscation choices.
func HeaderTypes() []string {
	return append([]string(nil), headerTypes...)
}

// SSMethods returns the Shadowsocks cipher choices.
func SSMethods() []string {
	return append([]string(nil), ssMethods...)
}

func ParseStreamType(v string) (StreamType, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, st := range allStreamTypes {
		if string(st) == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stream type %q", v)
}

func ValidHeaderType(v string) bool { return contains(headerTypes, v) }

func ValidSSMethod(v string) bool { return contains(ssMethods, v) }

// IsKCP reports whether st rides on mKCP.
func (st StreamType) IsKCP() bool {
	switch st {
	case KCP, KCPUTP, KCPSRTP, KCPDTLS, KCPWechat, KCPWG:
		return true
	}
	return false
}

// Classify maps an inbound's protocol, stream network and header type to the
// stream type shown for it.
func Classify(protocol, network, header string) StreamType {
	switch strings.ToLower(protocol) {
	case "shadowsocks":
		return SS
	case "socks":
		return Socks
	case "mtproto":
		return MTProto
	}
	header = strings.ToLower(header)
	switch strings.ToLower(network) {
	case "ws", "websocket":
		return WS
	case "h2", "http":
		return H2
	case "quic":
		return QUIC
	case "kcp", "mkcp":
		switch header {
		case "utp":
			return KCPUTP
		case "srtp":
			return KCPSRTP
		case "dtls":
			return KCPDTLS
		case "wechat-video":
			return KCPWechat
		case "wireguard":
			return KCPWG
		}
		return KCP
	}
	if header == "http" {
		return TCPHost
	}
	return TCP
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
