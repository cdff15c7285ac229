// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

//go:build !linux

package main

import "github.com/mmckit/mmc/scsi"

func newHostDriver(busOrder bool, timeout int) scsi.Driver {
	_ = busOrder // bus renumbering only applies to the sg transport
	return scsi.NewUSBDriver(scsi.USBOptions{TimeoutSeconds: timeout})
}
