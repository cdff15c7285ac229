// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package mmc

import (
	"github.com/mmckit/mmc/logging"
	"github.com/mmckit/mmc/scsi"
)

// Device is one optical drive and the result of its last capability probe.
// All state is owned exclusively by the device; the driver is shared by
// reference.
type Device struct {
	addr scsi.Address
	drv  scsi.Driver

	vendor     string
	identifier string
	revision   string
	name       string

	writeModes  uint16
	features    uint64
	properties  [numProperties]uint32
	readSpeeds  []uint32
	writeSpeeds []uint32
}

// NewDevice constructs a device on the process-wide driver and obtains its
// identity with INQUIRY. If INQUIRY fails the identity fields stay empty
// but the device remains usable.
func NewDevice(addr scsi.Address) *Device {
	return NewDeviceWithDriver(addr, scsi.Default())
}

// NewDeviceWithDriver is NewDevice on an explicit driver.
func NewDeviceWithDriver(addr scsi.Address, drv scsi.Driver) *Device {
	d := &Device{addr: addr, drv: drv}

	buf := make([]byte, 192)
	if err := d.Inquiry(buf); err == nil {
		if inq, err := ParseInquiry(buf); err == nil {
			d.vendor = inq.Vendor
			d.identifier = inq.Product
			d.revision = inq.Revision
		}
	} else {
		logging.Default().Warn().Str("addr", addr.String()).
			Msg("mmcdevice: unable to obtain device inquiry data")
	}

	d.name = d.vendor + " " + d.identifier + " " + d.revision
	return d
}

// Address returns the device location.
func (d *Device) Address() scsi.Address {
	return d.addr
}

// Vendor returns the device vendor.
func (d *Device) Vendor() string {
	return d.vendor
}

// Identifier returns the device product identifier.
func (d *Device) Identifier() string {
	return d.identifier
}

// Revision returns the device revision.
func (d *Device) Revision() string {
	return d.revision
}

// Name returns the display name "vendor identifier revision".
func (d *Device) Name() string {
	return d.name
}

// ReadSpeeds returns the supported read speeds in sectors per second.
func (d *Device) ReadSpeeds() []uint32 {
	return d.readSpeeds
}

// WriteSpeeds returns the supported write speeds in sectors per second.
func (d *Device) WriteSpeeds() []uint32 {
	return d.writeSpeeds
}

// Property returns the value of the given property, or 0 if unknown.
func (d *Device) Property(prop Property) uint32 {
	if prop >= 0 && prop < numProperties {
		return d.properties[prop]
	}
	return 0
}

// Recorder reports whether the device has recording capabilities.
func (d *Device) Recorder() bool {
	return d.Supports(FeatWriteCDR) ||
		d.Supports(FeatWriteCDRW) ||
		d.Supports(FeatWriteDVDR) ||
		d.Supports(FeatWriteDVDRAM)
}

// Supports reports whether the device supports the given feature.
func (d *Device) Supports(feature Feature) bool {
	return d.features&(uint64(1)<<uint(feature)) != 0
}

// SupportsWriteMode reports whether the device supports the given write
// mode.
func (d *Device) SupportsWriteMode(mode WriteMode) bool {
	return d.writeModes&(uint16(1)<<uint(mode)) != 0
}

// Profile returns the profile of the currently mounted medium, re-read
// from the device. ProfileNone is returned on any failure.
func (d *Device) Profile() Profile {
	buf := make([]byte, 8)

	if err := d.GetConfiguration(buf); err != nil {
		logging.Default().Warn().Str("dev", d.addr.String()).
			Msg("mmcdevice: requesting device configuration failed")
		return ProfileNone
	}

	config, err := ParseConfiguration(buf)
	if err != nil {
		logging.Default().Warn().Str("dev", d.addr.String()).
			Msg("mmcdevice: parsing of configuration data failed")
		return ProfileNone
	}

	return config.CurProfile
}

func (d *Device) setFeature(feature Feature) {
	d.features |= uint64(1) << uint(feature)
}

func (d *Device) setWriteMode(mode WriteMode) {
	d.writeModes |= uint16(1) << uint(mode)
}
