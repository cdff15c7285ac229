// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package mmc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmckit/mmc/scsi"
)

type recordingCallback struct {
	events []ScanEvent
	veto   string
}

func (c *recordingCallback) EventStatus(event ScanEvent) {
	c.events = append(c.events, event)
}

func (c *recordingCallback) EventDevice(addr scsi.Address) bool {
	return addr.Device != c.veto
}

func TestManagerScan(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	a0 := scsi.NewAddress()
	a0.Device = "/dev/sr0"
	a1 := scsi.NewAddress()
	a1.Device = "/dev/sr1"
	drv.addrs = []scsi.Address{a0, a1}

	mgr := NewDeviceManagerWithDriver(drv)
	cb := &recordingCallback{}
	require.NoError(t, mgr.Scan(cb))

	assert.Equal([]ScanEvent{EventDevScan, EventDevCap}, cb.events)
	require.Len(t, mgr.Devices(), 2)
	assert.Equal("/dev/sr0", mgr.Devices()[0].Address().Device)
	assert.True(mgr.Devices()[0].Recorder(), "devices are refreshed during the scan")
}

func TestManagerScanVeto(t *testing.T) {
	drv := recorderDriver()
	a0 := scsi.NewAddress()
	a0.Device = "/dev/sr0"
	a1 := scsi.NewAddress()
	a1.Device = "/dev/sr1"
	drv.addrs = []scsi.Address{a0, a1}

	mgr := NewDeviceManagerWithDriver(drv)
	require.NoError(t, mgr.Scan(&recordingCallback{veto: "/dev/sr0"}))

	require.Len(t, mgr.Devices(), 1)
	assert.Equal(t, "/dev/sr1", mgr.Devices()[0].Address().Device)
}

func TestManagerScanFailure(t *testing.T) {
	drv := newMockDriver()
	drv.scanErr = errors.New("no bus")

	mgr := NewDeviceManagerWithDriver(drv)
	assert.Error(t, mgr.Scan(nil))
	assert.Empty(t, mgr.Devices())
}

func TestManagerScanReplacesDevices(t *testing.T) {
	drv := recorderDriver()
	a0 := scsi.NewAddress()
	a0.Device = "/dev/sr0"
	drv.addrs = []scsi.Address{a0}

	mgr := NewDeviceManagerWithDriver(drv)
	require.NoError(t, mgr.Scan(nil))
	require.Len(t, mgr.Devices(), 1)

	drv.addrs = nil
	require.NoError(t, mgr.Scan(nil))
	assert.Empty(t, mgr.Devices())
}

func TestManagerScanKeepsFailedRefresh(t *testing.T) {
	drv := recorderDriver()
	delete(drv.modePages, 0x2a)
	a0 := scsi.NewAddress()
	a0.Device = "/dev/sr0"
	drv.addrs = []scsi.Address{a0}

	mgr := NewDeviceManagerWithDriver(drv)
	require.NoError(t, mgr.Scan(nil), "a failed refresh does not abort the scan")
	assert.Len(t, mgr.Devices(), 1)
}
