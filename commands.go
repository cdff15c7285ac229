// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// CDB builders and the command exchanges used by the capability probe.

package mmc

import (
	"fmt"

	"github.com/mmckit/mmc/scsi"
)

// BuildInquiry builds a 6-byte INQUIRY CDB requesting the standard 36-byte
// response.
func BuildInquiry() []byte {
	cdb := make([]byte, scsi.MaxCDBLen)
	cdb[0] = CmdInquiry
	cdb[4] = 0x24
	return cdb[:6]
}

// BuildGetConfiguration builds a 10-byte GET CONFIGURATION CDB.
func BuildGetConfiguration(allocLen uint16) []byte {
	cdb := make([]byte, scsi.MaxCDBLen)
	cdb[0] = CmdGetConfiguration
	cdb[7] = byte(allocLen >> 8)
	cdb[8] = byte(allocLen)
	return cdb[:10]
}

// BuildModeSense10 builds a 10-byte MODE SENSE (10) CDB with block
// descriptors disabled.
func BuildModeSense10(pageCode byte, allocLen uint16) ([]byte, error) {
	if pageCode > 0x3f {
		return nil, fmt.Errorf("invalid page code %#02x", pageCode)
	}

	cdb := make([]byte, scsi.MaxCDBLen)
	cdb[0] = CmdModeSense10
	cdb[1] = 0x08 // disable block descriptors
	cdb[2] = pageCode & 0x3f
	cdb[7] = byte(allocLen >> 8)
	cdb[8] = byte(allocLen)
	return cdb[:10], nil
}

// BuildModeSelect10 builds a 10-byte MODE SELECT (10) CDB.
func BuildModeSelect10(bufLen uint16, savePage, pageFormat bool) []byte {
	cdb := make([]byte, scsi.MaxCDBLen)
	cdb[0] = CmdModeSelect10
	if savePage {
		cdb[1] |= 0x01
	}
	if pageFormat {
		cdb[1] |= 0x10
	}
	cdb[7] = byte(bufLen >> 8)
	cdb[8] = byte(bufLen)
	return cdb[:10]
}

// Inquiry executes an INQUIRY command on the device.
func (d *Device) Inquiry(buf []byte) error {
	zero(buf)
	return d.drv.Transport(d.addr, BuildInquiry(), buf, scsi.DirRead)
}

// GetConfiguration executes a GET CONFIGURATION command on the device.
func (d *Device) GetConfiguration(buf []byte) error {
	zero(buf)
	return d.drv.Transport(d.addr, BuildGetConfiguration(uint16(len(buf))), buf, scsi.DirRead)
}

// ModeSense executes a MODE SENSE (10) command and verifies the returned
// page code.
func (d *Device) ModeSense(pageCode byte, buf []byte) error {
	cdb, err := BuildModeSense10(pageCode, uint16(len(buf)))
	if err != nil {
		return &scsi.Error{Op: "mode sense", Device: d.addr.String(),
			Kind: scsi.KindInvalidParam, Msg: err.Error()}
	}

	zero(buf)
	if err := d.drv.Transport(d.addr, cdb, buf, scsi.DirRead); err != nil {
		return err
	}

	if len(buf) < 9 || buf[8]&0x3f != pageCode {
		return &scsi.Error{Op: "mode sense", Device: d.addr.String(),
			Kind: scsi.KindTransport,
			Msg:  fmt.Sprintf("device returned wrong page for %#02x", pageCode)}
	}

	return nil
}

// ModeSelect executes a MODE SELECT (10) command over buf, which must hold
// a mode parameter header followed by the page data. The reserved header
// bytes are cleared per SPC-4 table 291.
func (d *Device) ModeSelect(buf []byte, savePage, pageFormat bool) error {
	if len(buf) < 6 {
		return &scsi.Error{Op: "mode select", Device: d.addr.String(),
			Kind: scsi.KindInvalidParam, Msg: "buffer too small"}
	}

	buf[0], buf[1] = 0, 0
	buf[4], buf[5] = 0, 0

	cdb := BuildModeSelect10(uint16(len(buf)), savePage, pageFormat)
	return d.drv.Transport(d.addr, cdb, buf, scsi.DirWrite)
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
