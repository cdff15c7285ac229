// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package main

import "github.com/mmckit/mmc/scsi"

func newHostDriver(busOrder bool, timeout int) scsi.Driver {
	return scsi.NewSGDriver(scsi.SGOptions{
		CdrtoolsBusOrder: busOrder,
		TimeoutSeconds:   timeout,
	})
}
