// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package testutils holds helpers shared by package tests: a scriptable ICMP
// connection, reply frame builders and network namespace helpers.
package testutils

import (
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// IPv4Frame wraps an ICMP message in an IPv4 header
func IPv4Frame(src, dst netip.Addr, ttl uint8, icmpMsg []byte) []byte {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      ttl,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.IP(src.AsSlice()),
		DstIP:    net.IP(dst.AsSlice()),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, gopacket.Payload(icmpMsg)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// EchoReplyFrame builds a complete IPv4 datagram holding an echo reply
func EchoReplyFrame(src, dst netip.Addr, ttl uint8, id, seq uint16, payload []byte) []byte {
	return IPv4Frame(src, dst, ttl, icmpMessage(layers.ICMPv4TypeEchoReply, id, seq, payload))
}

// EchoReplyTo answers an encoded echo request the way the destination would.
// It returns nil if req isn't an echo request.
func EchoReplyTo(req []byte, from, to netip.Addr, ttl uint8) []byte {
	icmp := &layers.ICMPv4{}
	if err := icmp.DecodeFromBytes(req, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}
	if icmp.TypeCode.Type() != layers.ICMPv4TypeEchoRequest {
		return nil
	}
	return EchoReplyFrame(from, to, ttl, icmp.Id, icmp.Seq, icmp.Payload)
}

func icmpMessage(typ uint8, id, seq uint16, payload []byte) []byte {
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(typ, 0),
		Id:       id,
		Seq:      seq,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, icmp, gopacket.Payload(payload)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
