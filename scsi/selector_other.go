// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

//go:build !linux

package scsi

// Hosts without an sg layer reach their drives over USB Mass Storage.
func newPlatformDriver() Driver {
	return NewUSBDriver(USBOptions{})
}
