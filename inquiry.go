// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package mmc

import (
	"errors"

	"github.com/mmckit/mmc/utils"
)

// InquiryData holds a decoded standard INQUIRY response (SPC-2 table 46).
type InquiryData struct {
	PerhDevType   byte
	PerhQual      byte
	RMB           bool
	Version       byte
	ResDataFormat byte
	HiSup         bool
	NormACA       bool
	AERC          bool
	AdditionalLen byte
	SCCS          bool
	Addr16        bool
	MChngr        bool
	MultiP        bool
	VS1           bool
	EncServ       bool
	BQue          bool
	VS2           bool
	CmdQueue      bool
	Linked        bool
	Sync          bool
	WBus16        bool
	RelAddr       bool

	Vendor   string
	Product  string
	Revision string
}

// ParseInquiry decodes a standard INQUIRY response. The ASCII identity
// fields are copied with trailing spaces stripped.
func ParseInquiry(buf []byte) (InquiryData, error) {
	var d InquiryData

	if len(buf) < 36 {
		return d, errors.New("inquiry: buffer too small")
	}

	d.PerhDevType = buf[0] & 0x1f
	d.PerhQual = buf[0] >> 5
	d.RMB = buf[1]&0x80 > 0
	d.Version = buf[2]
	d.ResDataFormat = buf[3] & 0x0f
	d.HiSup = buf[3]&0x10 > 0
	d.NormACA = buf[3]&0x20 > 0
	d.AERC = buf[3]&0x80 > 0
	d.AdditionalLen = buf[4]
	d.SCCS = buf[5]&0x80 > 0
	d.Addr16 = buf[6]&0x01 > 0
	d.MChngr = buf[6]&0x08 > 0
	d.MultiP = buf[6]&0x10 > 0
	d.VS1 = buf[6]&0x20 > 0
	d.EncServ = buf[6]&0x40 > 0
	d.BQue = buf[6]&0x80 > 0
	d.VS2 = buf[7]&0x01 > 0
	d.CmdQueue = buf[7]&0x08 > 0
	d.Linked = buf[7]&0x10 > 0
	d.Sync = buf[7]&0x20 > 0
	d.WBus16 = buf[7]&0x40 > 0
	d.RelAddr = buf[7]&0x80 > 0

	d.Vendor = utils.TrimASCII(buf[8:16])
	d.Product = utils.TrimASCII(buf[16:32])
	d.Revision = utils.TrimASCII(buf[32:36])

	return d, nil
}

// ConfigurationData holds the header of a GET CONFIGURATION response
// (MMC-3 table 74).
type ConfigurationData struct {
	DataLen    uint32
	CurProfile Profile
}

// ParseConfiguration decodes a GET CONFIGURATION header.
func ParseConfiguration(buf []byte) (ConfigurationData, error) {
	var d ConfigurationData

	if len(buf) < 8 {
		return d, errors.New("configuration: buffer too small")
	}

	d.DataLen = utils.ReadUint32(buf, 0)
	d.CurProfile = Profile(utils.ReadUint16(buf, 6))

	return d, nil
}
