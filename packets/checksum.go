// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

// onesComplementSum adds buf as big-endian 16-bit words and folds the carries
// back into the low 16 bits. An odd trailing byte is the high byte of a
// zero-padded word.
func onesComplementSum(buf []byte) uint16 {
	var sum uint32
	n := len(buf)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(buf[i])<<8 | uint32(buf[i+1])
	}
	if n%2 == 1 {
		sum += uint32(buf[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return uint16(sum)
}

// Checksum computes the RFC 1071 Internet checksum of buf.
func Checksum(buf []byte) uint16 {
	return ^onesComplementSum(buf)
}

// VerifyChecksum reports whether buf, which already carries its checksum,
// sums to 0xffff.
func VerifyChecksum(buf []byte) bool {
	return onesComplementSum(buf) == 0xffff
}
