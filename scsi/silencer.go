// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package scsi

// SilenceScope enables silence on the driver and returns a function that
// restores the previous setting. Callers must defer the restore so the
// silence state survives no exit path:
//
//	defer scsi.SilenceScope(drv)()
func SilenceScope(drv Driver) func() {
	prev := drv.Silence(true)
	return func() {
		drv.Silence(prev)
	}
}
