// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package mmc

import (
	"github.com/mmckit/mmc/logging"
	"github.com/mmckit/mmc/scsi"
)

// ScanEvent is a discovery phase notification.
type ScanEvent int

const (
	// EventDevScan: scanning the system bus for devices.
	EventDevScan ScanEvent = iota

	// EventDevCap: obtaining the capabilities of the discovered devices.
	EventDevCap
)

// ScanCallback observes a discovery run.
type ScanCallback interface {
	// EventStatus is called when the scan enters a new phase.
	EventStatus(event ScanEvent)

	// EventDevice is called for each discovered address; returning false
	// drops the device.
	EventDevice(addr scsi.Address) bool
}

// DeviceManager discovers the optical drives of the host and owns the
// resulting device objects.
type DeviceManager struct {
	drv     scsi.Driver
	devices []*Device
}

// NewDeviceManager constructs a manager on the process-wide driver.
func NewDeviceManager() *DeviceManager {
	return NewDeviceManagerWithDriver(scsi.Default())
}

// NewDeviceManagerWithDriver is NewDeviceManager on an explicit driver.
func NewDeviceManagerWithDriver(drv scsi.Driver) *DeviceManager {
	return &DeviceManager{drv: drv}
}

// Clear drops all previously discovered devices.
func (m *DeviceManager) Clear() {
	m.devices = nil
}

// Scan discovers devices and refreshes their capabilities. The callback
// may be nil. Devices that fail to refresh are kept with whatever state
// the probe left behind.
func (m *DeviceManager) Scan(callback ScanCallback) error {
	m.Clear()

	if callback != nil {
		callback.EventStatus(EventDevScan)
	}

	addresses, err := m.drv.Scan()
	if err != nil {
		return err
	}

	for _, addr := range addresses {
		if callback != nil && !callback.EventDevice(addr) {
			continue
		}
		m.devices = append(m.devices, NewDeviceWithDriver(addr, m.drv))
	}

	if callback != nil {
		callback.EventStatus(EventDevCap)
	}

	for _, dev := range m.devices {
		if err := dev.Refresh(); err != nil {
			logging.Default().Warn().Str("dev", dev.Address().String()).
				Msg("device: unable to refresh device capabilities")
		}
	}

	return nil
}

// Devices returns the devices found by the last scan.
func (m *DeviceManager) Devices() []*Device {
	return m.devices
}
