// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build linux

package packets

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/DataDog/datadog-safeping/log"
)

// rawConnLinux is a non-blocking raw ICMP socket. The fd is handed to the Go
// netpoller through os.File, so a pending read parks on readiness instead of
// spinning on EAGAIN.
type rawConnLinux struct {
	sock    *os.File
	rawConn syscall.RawConn
}

var _ Conn = &rawConnLinux{}

// NewConn opens a raw IPv4 ICMP socket. It needs CAP_NET_RAW.
func NewConn(opts ConnOptions) (Conn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_ICMP)
	if err != nil {
		return nil, fmt.Errorf("failed to create raw ICMP socket: %w", err)
	}

	if opts.Filter.EchoReplyOnly {
		filter, err := echoReplyFilter(opts.Filter.Identifier)
		if err != nil {
			unix.Close(fd)
			return nil, err
		}
		if err := attachFilter(fd, filter); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}

	sock := os.NewFile(uintptr(fd), "icmp")
	rawConn, err := sock.SyscallConn()
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to get raw connection: %w", err)
	}

	return &rawConnLinux{
		sock:    sock,
		rawConn: rawConn,
	}, nil
}

func attachFilter(fd int, filter []bpf.RawInstruction) error {
	prog := unix.SockFprog{
		Len:    uint16(len(filter)),
		Filter: (*unix.SockFilter)(unsafe.Pointer(&filter[0])),
	}
	if err := unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog); err != nil {
		return fmt.Errorf("failed to attach echo reply filter: %w", err)
	}
	return nil
}

// WriteTo sends an ICMP message (no IP header) to addr.
func (c *rawConnLinux) WriteTo(buf []byte, addr netip.Addr) error {
	if !addr.Is4() {
		return fmt.Errorf("raw ICMP socket supports only IPv4 addresses, got %s", addr)
	}
	sa := &unix.SockaddrInet4{Addr: addr.As4()}

	var err error
	writeErr := c.rawConn.Write(func(fd uintptr) bool {
		err = unix.Sendto(int(fd), buf, 0, sa)
		if err == nil {
			return true
		}
		return !(err == syscall.EAGAIN || err == syscall.EWOULDBLOCK)
	})

	return errors.Join(writeErr, err)
}

// ReadPacket reads one IPv4 datagram.
func (c *rawConnLinux) ReadPacket(buf []byte) (int, error) {
	var n int
	var err error
	readErr := c.rawConn.Read(func(fd uintptr) bool {
		n, _, err = unix.Recvfrom(int(fd), buf, 0)
		return !(err == syscall.EAGAIN || err == syscall.EWOULDBLOCK)
	})
	if errors.Is(readErr, os.ErrDeadlineExceeded) {
		return 0, ErrNoPacket
	}
	if readErr != nil {
		return 0, readErr
	}
	if err != nil {
		return 0, fmt.Errorf("recvfrom failed: %w", err)
	}
	log.Tracef("read %d byte ICMP datagram", n)
	return n, nil
}

func (c *rawConnLinux) SetReadDeadline(t time.Time) error {
	return c.sock.SetReadDeadline(t)
}

func (c *rawConnLinux) Close() error {
	return c.sock.Close()
}
