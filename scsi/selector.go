// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Process-wide driver selection.

package scsi

import "sync"

var (
	driverMu      sync.Mutex
	defaultDriver Driver
)

// Default returns the process-wide driver, constructing the platform
// default on first access. Later calls return the same driver until
// SetDefault replaces it.
func Default() Driver {
	driverMu.Lock()
	defer driverMu.Unlock()

	if defaultDriver == nil {
		defaultDriver = newPlatformDriver()
	}
	return defaultDriver
}

// SetDefault overrides the process-wide driver. Intended for tests and for
// hosts that select a non-default transport at startup.
func SetDefault(d Driver) {
	driverMu.Lock()
	defer driverMu.Unlock()
	defaultDriver = d
}
