// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build linux

package testutils

import (
	"fmt"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// WithNS executes the given function in the given network namespace, and then
// switches back to the previous namespace.
func WithNS(ns netns.NsHandle, fn func() error) error {
	if ns == netns.None() {
		return fn()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	prevNS, err := netns.Get()
	if err != nil {
		return err
	}
	defer prevNS.Close()

	if ns.Equal(prevNS) {
		return fn()
	}

	if err := netns.Set(ns); err != nil {
		return err
	}

	fnErr := fn()
	nsErr := netns.Set(prevNS)
	if fnErr != nil {
		return fnErr
	}
	return nsErr
}

// NewLoopbackNS creates a network namespace whose only interface is an up
// loopback, so nothing but 127.0.0.0/8 is routable. Needs CAP_SYS_ADMIN.
func NewLoopbackNS() (netns.NsHandle, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	prevNS, err := netns.Get()
	if err != nil {
		return netns.None(), err
	}
	defer prevNS.Close()

	ns, err := netns.New()
	if err != nil {
		return netns.None(), fmt.Errorf("failed to create network namespace: %w", err)
	}
	defer netns.Set(prevNS)

	lo, err := netlink.LinkByName("lo")
	if err != nil {
		ns.Close()
		return netns.None(), fmt.Errorf("failed to find loopback: %w", err)
	}
	if err := netlink.LinkSetUp(lo); err != nil {
		ns.Close()
		return netns.None(), fmt.Errorf("failed to bring loopback up: %w", err)
	}
	return ns, nil
}
