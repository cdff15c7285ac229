// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Bit-exact decoders and encoders for the mode pages used by the
// capability probe.

package mmc

import (
	"errors"
	"fmt"

	"github.com/mmckit/mmc/utils"
)

// WriteType selects the recording mode in mode page 0x05.
type WriteType byte

const (
	WTPacket    WriteType = 0
	WTTAO       WriteType = 1
	WTSAO       WriteType = 2
	WTRaw       WriteType = 3
	WTLayerJump WriteType = 4

	// Not in the official standard.
	WTAudioMaster WriteType = 8
)

// MultiSession is the multi-session field of mode page 0x05.
type MultiSession byte

const (
	MSNextDisallowedNoB0 MultiSession = 0
	MSNextDisallowedB0   MultiSession = 1
	MSNextAllowedB0      MultiSession = 3
)

// DataBlock is the data block type field of mode page 0x05.
type DataBlock byte

const (
	DBRaw2352       DataBlock = 0
	DBRaw2352PQ     DataBlock = 1
	DBRaw2352PWPack DataBlock = 2
	DBRaw2352PW     DataBlock = 3
	DBMode12048     DataBlock = 8
	DBMode22336     DataBlock = 9
	DBMode2XAForm12048 DataBlock = 10
	DBMode2XAForm12056 DataBlock = 11
	DBMode2XAForm22324 DataBlock = 12
	DBMode2XAMixed2332 DataBlock = 13
)

// SessionFormat is the session format field of mode page 0x05.
type SessionFormat byte

const (
	SFCDROMCDDA SessionFormat = 0
	SFCDI       SessionFormat = 1
	SFCDROMXA   SessionFormat = 2
)

// Track mode flags (MMC-2 table 295).
const (
	TMAudio2 = 0x00 // two channel audio
	TMAudio4 = 0x08 // four channel audio
	TMPreEmp = 0x01 // audio pre-emphasis, combined with TMAudio2/TMAudio4

	TMData        = 0x04 // data track
	TMIncremental = 0x01 // incremental data, combined with TMData

	TMCopyAllowed = 0x03
)

// modePageHeaderLen is the length of the mode parameter header that
// precedes a sensed page (SPC-4 table 291).
const modePageHeaderLen = 8

// ModePage05 holds the write parameters page (MMC-2 table 123).
type ModePage05 struct {
	PageCode      byte
	PS            bool
	PageLen       byte
	WriteType     WriteType
	TestWrite     bool
	LsV           bool
	BufE          bool
	TrackMode     byte
	Copy          bool
	FP            bool
	MultiSession  MultiSession
	DataBlockType DataBlock
	LinkSize      byte
	HostAppCode   byte
	SessionFormat SessionFormat
	PackedSize    uint32
	AudioPulseLen uint16
	MediaCatNum   [16]byte
	IntStdRecCode [16]byte
	SubHdrs       [4]byte
}

// modePage05Len is the size of the page payload without the mode
// parameter header.
const modePage05Len = 52

// ParseModePage05 decodes a sensed mode page 0x05, including the 8-byte
// mode parameter header.
func ParseModePage05(buf []byte) (ModePage05, error) {
	var p ModePage05

	if len(buf) < modePageHeaderLen+modePage05Len {
		return p, errors.New("mode page 0x05: buffer too small")
	}

	pageLen := utils.ReadUint16(buf, 0) - 6
	if pageLen < modePage05Len {
		return p, fmt.Errorf("mode page 0x05: page length %d too small", pageLen)
	}

	page := buf[modePageHeaderLen:]

	pageCode := page[0] & 0x3f
	if pageCode != 0x05 {
		return p, fmt.Errorf("mode page 0x05: unexpected page code %#02x", pageCode)
	}

	p.PageCode = pageCode
	p.PS = page[0]&0x80 > 0
	p.PageLen = page[1]
	p.WriteType = WriteType(page[2] & 0x0f)
	p.TestWrite = page[2]&0x10 > 0
	p.LsV = page[2]&0x20 > 0
	p.BufE = page[2]&0x40 > 0
	p.TrackMode = page[3] & 0x0f
	p.Copy = page[3]&0x10 > 0
	p.FP = page[3]&0x20 > 0
	p.MultiSession = MultiSession((page[3] & 0xc0) >> 6)
	p.DataBlockType = DataBlock(page[4] & 0x0f)
	p.LinkSize = page[5]
	p.HostAppCode = page[7] & 0x3f
	p.SessionFormat = SessionFormat(page[8])
	p.PackedSize = utils.ReadUint32(page, 10)
	p.AudioPulseLen = utils.ReadUint16(page, 14)

	copy(p.MediaCatNum[:], page[16:32])
	copy(p.IntStdRecCode[:], page[32:48])
	copy(p.SubHdrs[:], page[48:52])

	return p, nil
}

// Encode writes the page payload into buf. Only the page data is written,
// not the mode parameter header used by ParseModePage05.
func (p *ModePage05) Encode(buf []byte) error {
	if len(buf) < modePage05Len {
		return errors.New("mode page 0x05: buffer too small")
	}

	for i := range buf {
		buf[i] = 0
	}

	buf[0] |= p.PageCode & 0x3f
	if p.PS {
		buf[0] |= 0x80
	}
	buf[1] = p.PageLen
	buf[2] |= byte(p.WriteType) & 0x0f
	if p.TestWrite {
		buf[2] |= 0x10
	}
	if p.LsV {
		buf[2] |= 0x20
	}
	if p.BufE {
		buf[2] |= 0x40
	}
	buf[3] |= p.TrackMode & 0x0f
	if p.Copy {
		buf[3] |= 0x10
	}
	if p.FP {
		buf[3] |= 0x20
	}
	buf[3] |= (byte(p.MultiSession) & 0x03) << 6
	buf[4] |= byte(p.DataBlockType) & 0x0f
	buf[5] = p.LinkSize
	buf[7] |= p.HostAppCode & 0x3f
	buf[8] = byte(p.SessionFormat)

	utils.WriteUint32(p.PackedSize, buf, 10)
	utils.WriteUint16(p.AudioPulseLen, buf, 14)

	copy(buf[16:32], p.MediaCatNum[:])
	copy(buf[32:48], p.IntStdRecCode[:])
	copy(buf[48:52], p.SubHdrs[:])

	return nil
}

// ResetTAO resets the page into the TAO default state.
func (p *ModePage05) ResetTAO() {
	p.WriteType = WTTAO
	p.TrackMode = TMData
	p.DataBlockType = DBMode12048
	p.SessionFormat = SFCDROMCDDA
	p.AudioPulseLen = 150
}

// ResetSAO resets the page into the SAO default state.
func (p *ModePage05) ResetSAO() {
	p.WriteType = WTSAO
	p.TrackMode = TMData
	p.DataBlockType = DBMode12048
	p.SessionFormat = SFCDROMCDDA
	p.AudioPulseLen = 150

	p.LsV = false
	p.Copy = false
	p.FP = false
	p.MultiSession = MSNextDisallowedNoB0
	p.HostAppCode = 0
}

// ModePage2A holds the drive capabilities page (MMC-3 table 361).
type ModePage2A struct {
	PageCode byte
	PS       bool
	PageLen  byte

	ReadCDR    bool
	ReadCDRW   bool
	Method2    bool
	ReadDVDROM bool
	ReadDVDR   bool
	ReadDVDRAM bool

	WriteCDR    bool
	WriteCDRW   bool
	TestWrite   bool
	WriteDVDR   bool
	WriteDVDRAM bool

	AudioPlay    bool
	Composite    bool
	DigitalPort1 bool
	DigitalPort2 bool
	Mode2Form1   bool
	Mode2Form2   bool
	MultiSession bool
	BUF          bool

	CDDASupported bool
	CDDAAccurate  bool
	RWSupported   bool
	RWDeintCorr   bool
	C2Pointers    bool
	ISRC          bool
	UPC           bool
	ReadBarCode   bool

	Lock          bool
	LockState     bool
	PreventJumper bool
	Eject         bool
	LoadMechanism LoadMechanism

	SepChanVol      bool
	SepChanMute     bool
	ChangeDiscPrsnt bool
	SSS             bool
	ChangeSides     bool
	RWLeadIn        bool

	MaxReadSpd uint16 // KB/s
	NumVolLvls uint16
	BufSize    uint16 // KB
	CurReadSpd uint16 // KB/s

	BCKF   bool
	RCK    bool
	LSBF   bool
	Length AudioBlockLen

	MaxWriteSpd uint16 // KB/s
	CurWriteSpd uint16 // KB/s
	CopyManRev  uint16
	RotCtrl     RotCtrl

	WriteSpds []uint16 // KB/s
}

// minSpeedKB is 1x CD speed; reported speeds below it are invalid.
const minSpeedKB = 176

// ParseModePage2A decodes a sensed mode page 0x2a, including the 8-byte
// mode parameter header.
func ParseModePage2A(buf []byte) (ModePage2A, error) {
	var p ModePage2A

	if len(buf) < modePageHeaderLen+32 {
		return p, errors.New("mode page 0x2a: buffer too small")
	}

	pageLen := utils.ReadUint16(buf, 0) - 6
	if pageLen < 16 {
		return p, fmt.Errorf("mode page 0x2a: page length %d too small", pageLen)
	}

	page := buf[modePageHeaderLen:]

	pageCode := page[0] & 0x3f
	if pageCode != 0x2a {
		return p, fmt.Errorf("mode page 0x2a: unexpected page code %#02x", pageCode)
	}

	p.PageCode = pageCode
	p.PS = page[0]&0x80 > 0
	p.PageLen = page[1]
	p.ReadCDR = page[2]&0x01 > 0
	p.ReadCDRW = page[2]&0x02 > 0
	p.Method2 = page[2]&0x04 > 0
	p.ReadDVDROM = page[2]&0x08 > 0
	p.ReadDVDR = page[2]&0x10 > 0
	p.ReadDVDRAM = page[2]&0x20 > 0
	p.WriteCDR = page[3]&0x01 > 0
	p.WriteCDRW = page[3]&0x02 > 0
	p.TestWrite = page[3]&0x04 > 0
	p.WriteDVDR = page[3]&0x10 > 0
	p.WriteDVDRAM = page[3]&0x20 > 0
	p.AudioPlay = page[4]&0x01 > 0
	p.Composite = page[4]&0x02 > 0
	p.DigitalPort1 = page[4]&0x04 > 0
	p.DigitalPort2 = page[4]&0x08 > 0
	p.Mode2Form1 = page[4]&0x10 > 0
	p.Mode2Form2 = page[4]&0x20 > 0
	p.MultiSession = page[4]&0x40 > 0
	p.BUF = page[4]&0x80 > 0
	p.CDDASupported = page[5]&0x01 > 0
	p.CDDAAccurate = page[5]&0x02 > 0
	p.RWSupported = page[5]&0x04 > 0
	p.RWDeintCorr = page[5]&0x08 > 0
	p.C2Pointers = page[5]&0x10 > 0
	p.ISRC = page[5]&0x20 > 0
	p.UPC = page[5]&0x40 > 0
	p.ReadBarCode = page[5]&0x80 > 0
	p.Lock = page[6]&0x01 > 0
	p.LockState = page[6]&0x02 > 0
	p.PreventJumper = page[6]&0x04 > 0
	p.Eject = page[6]&0x08 > 0
	p.LoadMechanism = LoadMechanism((page[6] >> 5) & 0x07)
	p.SepChanVol = page[7]&0x01 > 0
	p.SepChanMute = page[7]&0x02 > 0
	p.ChangeDiscPrsnt = page[7]&0x04 > 0
	p.SSS = page[7]&0x08 > 0
	p.ChangeSides = page[7]&0x10 > 0
	p.RWLeadIn = page[7]&0x20 > 0

	// Speeds below 1x are invalid.
	p.MaxReadSpd = utils.ReadUint16(page, 8)
	if p.MaxReadSpd < minSpeedKB && p.MaxReadSpd > 0 {
		return p, fmt.Errorf("mode page 0x2a: invalid maximum read speed %d KB/s", p.MaxReadSpd)
	}

	p.NumVolLvls = utils.ReadUint16(page, 10)
	p.BufSize = utils.ReadUint16(page, 12)

	p.CurReadSpd = utils.ReadUint16(page, 14)
	if p.CurReadSpd < minSpeedKB && p.CurReadSpd > 0 {
		return p, fmt.Errorf("mode page 0x2a: invalid current read speed %d KB/s", p.CurReadSpd)
	}

	p.BCKF = page[17]&0x02 > 0
	p.RCK = page[17]&0x04 > 0
	p.LSBF = page[17]&0x08 > 0
	p.Length = AudioBlockLen((page[17] >> 4) & 0x03)
	p.MaxWriteSpd = utils.ReadUint16(page, 18)
	p.CurWriteSpd = utils.ReadUint16(page, 20)

	// Only available on MMC-2 and newer devices.
	if pageLen >= 24 {
		p.CopyManRev = utils.ReadUint16(page, 22)
	}

	// Only available on MMC-3 and newer devices.
	p.RotCtrl = RotCLV
	if p.PageLen >= 28 {
		p.RotCtrl = RotCtrl(page[27] & 0x03)

		// MMC-3 moved the current write speed.
		p.CurWriteSpd = utils.ReadUint16(page, 28)

		numWriteSpds := int(utils.ReadUint16(page, 30))
		for i := 0; i < numWriteSpds; i++ {
			off := 32 + 2 + i*4
			if off+2 > len(page) {
				break
			}
			p.WriteSpds = append(p.WriteSpds, utils.ReadUint16(page, off))
		}
	}

	return p, nil
}

// FeatureDescriptor is one entry of a GET CONFIGURATION feature list.
type FeatureDescriptor struct {
	Code       uint16
	Current    bool
	Persistent bool
	Version    byte
	Data       []byte
}

// WalkFeatureDescriptors walks the descriptor list of a GET CONFIGURATION
// response, skipping the 8-byte header. The walk is bounded by the data
// length field, so a zero-padded allocation does not yield phantom
// descriptors.
func WalkFeatureDescriptors(buf []byte) []FeatureDescriptor {
	var descs []FeatureDescriptor

	if len(buf) < 8 {
		return nil
	}

	// The data length field excludes itself.
	end := int(utils.ReadUint32(buf, 0)) + 4
	if end > len(buf) {
		end = len(buf)
	}

	off := 8
	for off+4 <= end {
		d := FeatureDescriptor{
			Code:       utils.ReadUint16(buf, off),
			Current:    buf[off+2]&0x01 > 0,
			Persistent: buf[off+2]&0x02 > 0,
			Version:    (buf[off+2] >> 2) & 0x0f,
		}

		addLen := int(buf[off+3])
		if off+4+addLen <= end {
			d.Data = buf[off+4 : off+4+addLen]
		}

		descs = append(descs, d)
		off += 4 + addLen
	}

	return descs
}
