// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/ipv4"

	"github.com/DataDog/datadog-safeping/common"
)

const (
	// IPv4HeaderLen is the length of an IPv4 header without options
	IPv4HeaderLen = 20
	// ICMPHeaderLen is the length of an ICMP echo header
	ICMPHeaderLen = 8
	// MinEchoReplyLen is the smallest datagram DecodeEchoReply accepts
	MinEchoReplyLen = IPv4HeaderLen + ICMPHeaderLen
	// MaxIPPacketSize is IP_MAXPACKET
	MaxIPPacketSize = 65535
	// MaxPayloadSize is the largest echo payload that still fits in one IPv4 packet
	MaxPayloadSize = MaxIPPacketSize - IPv4HeaderLen - ICMPHeaderLen
)

var (
	// ErrPayloadTooLarge is returned when an echo request would not fit in an IPv4 packet
	ErrPayloadTooLarge = errors.New("echo payload too large")
	// ErrMalformedPacket is returned when a received datagram can't hold an echo reply
	ErrMalformedPacket = errors.New("malformed packet")
)

// EncodeEchoRequest lays out an ICMP echo request (type 8, code 0) followed by
// payload and fills in its checksum.
func EncodeEchoRequest(id, seq uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	icmpLayer := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       id,
		Seq:      seq,
	}

	buf := gopacket.NewSerializeBufferExpectedSize(ICMPHeaderLen, len(payload))
	// the checksum is ours to compute, so leave gopacket's zero placeholder alone
	opts := gopacket.SerializeOptions{}
	err := gopacket.SerializeLayers(buf, opts, icmpLayer, gopacket.Payload(payload))
	if err != nil {
		return nil, fmt.Errorf("EncodeEchoRequest failed to serialize: %w", err)
	}

	out := buf.Bytes()
	out[2], out[3] = 0, 0
	csum := Checksum(out)
	out[2] = byte(csum >> 8)
	out[3] = byte(csum)
	return out, nil
}

// IPHeader holds the IPv4 fields a reply is reported with
type IPHeader struct {
	TTL       uint8
	Src       netip.Addr
	Dst       netip.Addr
	HeaderLen int
}

// ICMPHeader holds the 8-byte echo header
type ICMPHeader struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16
}

// EchoReply is a read-only view over one received datagram. Payload and Raw
// alias the receive buffer, so an EchoReply is only valid until the next read.
type EchoReply struct {
	IP      IPHeader
	ICMP    ICMPHeader
	Payload []byte
	Raw     []byte
}

// IsEchoReply reports whether the ICMP message is an echo reply (type 0)
func (r *EchoReply) IsEchoReply() bool {
	return r.ICMP.Type == uint8(layers.ICMPv4TypeEchoReply)
}

// ChecksumValid verifies the ICMP checksum of the reply.
func (r *EchoReply) ChecksumValid() bool {
	return VerifyChecksum(r.Raw[r.IP.HeaderLen:])
}

// DecodeEchoReply parses an IPv4 datagram (header included) carrying an ICMP
// message. The checksum is not verified.
func DecodeEchoReply(raw []byte) (*EchoReply, error) {
	if len(raw) < MinEchoReplyLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than %d", ErrMalformedPacket, len(raw), MinEchoReplyLen)
	}
	hdrLen := int(raw[0]&0x0f) * 4
	if hdrLen < IPv4HeaderLen {
		return nil, fmt.Errorf("%w: invalid IP header length %d", ErrMalformedPacket, hdrLen)
	}
	if hdrLen+ICMPHeaderLen > len(raw) {
		return nil, fmt.Errorf("%w: IP header length %d overruns %d byte datagram", ErrMalformedPacket, hdrLen, len(raw))
	}

	ipHdr, err := ipv4.ParseHeader(raw[:hdrLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPacket, err)
	}

	var icmpLayer layers.ICMPv4
	if err := icmpLayer.DecodeFromBytes(raw[hdrLen:], gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPacket, err)
	}

	// ParseHeader stores addresses in their 16 byte form
	src, _ := common.UnmappedAddrFromSlice(ipHdr.Src)
	dst, _ := common.UnmappedAddrFromSlice(ipHdr.Dst)
	return &EchoReply{
		IP: IPHeader{
			TTL:       uint8(ipHdr.TTL),
			Src:       src,
			Dst:       dst,
			HeaderLen: hdrLen,
		},
		ICMP: ICMPHeader{
			Type:     icmpLayer.TypeCode.Type(),
			Code:     icmpLayer.TypeCode.Code(),
			Checksum: icmpLayer.Checksum,
			ID:       icmpLayer.Id,
			Seq:      icmpLayer.Seq,
		},
		Payload: icmpLayer.Payload,
		Raw:     raw,
	}, nil
}
