// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// The capability probe. Refresh orders four command exchanges so that
// later phases observe the results of earlier ones: the write-mode and
// vendor probes run only for recorders, and the DVD+ write bits derived
// from GET CONFIGURATION depend on the DVD-R write bit from mode page
// 0x2a.

package mmc

import (
	"github.com/mmckit/mmc/logging"
	"github.com/mmckit/mmc/quirks"
	"github.com/mmckit/mmc/scsi"
	"github.com/mmckit/mmc/utils"
)

// Refresh re-probes the device capabilities. On success all previously
// held capability state is replaced. A failure in the capability or
// write-parameter exchanges aborts the probe; the feature-descriptor scan
// is best effort. Individual MODE SELECT probes are expected to fail for
// unsupported modes, so the transport is silenced for the duration.
func (d *Device) Refresh() error {
	restore := scsi.SilenceScope(d.drv)
	defer restore()

	buf := make([]byte, 192)

	// Request mode page 0x2a.
	if err := d.ModeSense(0x2a, buf); err != nil {
		logging.Default().Error().Str("dev", d.addr.String()).
			Msg("mmcdevice: requesting mode sense for page 0x2a failed")
		return err
	}

	page2A, err := ParseModePage2A(buf)
	if err != nil {
		logging.Default().Error().Str("dev", d.addr.String()).Err(err).
			Msg("mmcdevice: parsing of mode page 0x2a failed")
		return err
	}

	// Previous state is fully replaced, not merged.
	d.features = 0
	d.writeModes = 0
	d.properties = [numProperties]uint32{}
	d.readSpeeds = nil
	d.writeSpeeds = nil

	d.applyCapabilities(&page2A)

	// Guessed read speeds, halving from the known maximum.
	d.readSpeeds = speedLadder(d.Property(PropMaxReadSpd))

	if d.Recorder() {
		// Prefer the actual write speeds of any medium present.
		for _, kb := range page2A.WriteSpds {
			d.writeSpeeds = append(d.writeSpeeds, kbToSectors(kb))
		}
		if len(d.writeSpeeds) == 0 {
			d.writeSpeeds = speedLadder(d.Property(PropMaxWriteSpd))
		}

		if err := d.probeWriteModes(buf); err != nil {
			return err
		}
		if err := d.probeVendorFeatures(buf); err != nil {
			return err
		}
	}

	d.probeFeatureSet()

	return nil
}

// speedLadder synthesises a speed table from a maximum in sectors per
// second: the x-multiplier is halved until it reaches zero, so the
// sequence is monotonically non-increasing and terminates.
func speedLadder(secSpeed uint32) []uint32 {
	var speeds []uint32

	cur := uint32(float64(secSpeed)/75 + 0.5)
	for cur > 0 {
		speeds = append(speeds, cur*75)
		cur >>= 1
	}

	return speeds
}

// kbToSectors converts a KB/s speed to sectors per second, assuming raw
// 2352-byte sectors.
func kbToSectors(kb uint16) uint32 {
	return uint32(kb) * 1000 / 2352
}

// applyCapabilities maps mode page 0x2a onto the feature bitset and the
// property table.
func (d *Device) applyCapabilities(p *ModePage2A) {
	flags := []struct {
		on   bool
		feat Feature
	}{
		{p.ReadCDR, FeatReadCDR},
		{p.ReadCDRW, FeatReadCDRW},
		{p.Method2, FeatMethod2},
		{p.ReadDVDROM, FeatReadDVDROM},
		{p.ReadDVDR, FeatReadDVDR},
		{p.ReadDVDRAM, FeatReadDVDRAM},
		{p.WriteCDR, FeatWriteCDR},
		{p.WriteCDRW, FeatWriteCDRW},
		{p.TestWrite, FeatTestWrite},
		{p.WriteDVDR, FeatWriteDVDR},
		{p.WriteDVDRAM, FeatWriteDVDRAM},
		{p.AudioPlay, FeatAudioPlay},
		{p.Composite, FeatComposite},
		{p.DigitalPort1, FeatDigitalPort1},
		{p.DigitalPort2, FeatDigitalPort2},
		{p.Mode2Form1, FeatMode2Form1},
		{p.Mode2Form2, FeatMode2Form2},
		{p.MultiSession, FeatMultiSession},
		{p.BUF, FeatBUP},
		{p.CDDASupported, FeatCDDASupported},
		{p.CDDAAccurate, FeatCDDAAccurate},
		{p.RWSupported, FeatRWSupported},
		{p.RWDeintCorr, FeatRWDeintCorr},
		{p.C2Pointers, FeatC2Pointers},
		{p.ISRC, FeatISRC},
		{p.UPC, FeatUPC},
		{p.ReadBarCode, FeatReadBarCode},
		{p.Lock, FeatLock},
		{p.LockState, FeatLockState},
		{p.PreventJumper, FeatPreventJumper},
		{p.Eject, FeatEject},
		{p.SepChanVol, FeatSepChanVol},
		{p.SepChanMute, FeatSepChanMute},
		{p.ChangeDiscPrsnt, FeatChangeDiscPrsnt},
		{p.SSS, FeatSSS},
		{p.ChangeSides, FeatChangeSides},
		{p.RWLeadIn, FeatRWLeadIn},
		{p.BCKF, FeatBCKF},
		{p.RCK, FeatRCK},
		{p.LSBF, FeatLSBF},
	}

	for _, f := range flags {
		if f.on {
			d.setFeature(f.feat)
		}
	}

	d.properties[PropNumVolLvls] = uint32(p.NumVolLvls)
	d.properties[PropBufferSize] = uint32(p.BufSize)
	d.properties[PropCopyMgmtRev] = uint32(p.CopyManRev)
	d.properties[PropLoadMechanism] = uint32(p.LoadMechanism)
	d.properties[PropRotCtrl] = uint32(p.RotCtrl)
	d.properties[PropDABlockLen] = uint32(p.Length)
	d.properties[PropMaxReadSpd] = kbToSectors(p.MaxReadSpd)
	d.properties[PropCurReadSpd] = kbToSectors(p.CurReadSpd)
	d.properties[PropMaxWriteSpd] = kbToSectors(p.MaxWriteSpd)
	d.properties[PropCurWriteSpd] = kbToSectors(p.CurWriteSpd)
}

// selectPage05 re-encodes the candidate page over the sensed buffer and
// offers it to the device. Failure means the device rejected the
// combination, which is the expected outcome for unsupported modes.
func (d *Device) selectPage05(page *ModePage05, buf []byte, bufLen int) bool {
	if err := page.Encode(buf[modePageHeaderLen : modePageHeaderLen+modePage05Len]); err != nil {
		return false
	}
	return d.ModeSelect(buf[:bufLen], false, true) == nil
}

// page05BufLen derives the MODE SELECT transfer length from the sensed
// mode data length field.
func page05BufLen(buf []byte) int {
	bufLen := int(utils.ReadUint16(buf, 0)) + 2
	if bufLen > len(buf) {
		bufLen = len(buf)
	}
	if bufLen < modePageHeaderLen+modePage05Len {
		bufLen = modePageHeaderLen + modePage05Len
	}
	return bufLen
}

// probeWriteModes discovers the supported write modes by offering each
// candidate write parameter combination with MODE SELECT.
func (d *Device) probeWriteModes(buf []byte) error {
	if err := d.ModeSense(0x05, buf); err != nil {
		logging.Default().Error().Str("dev", d.addr.String()).
			Msg("mmcdevice: requesting mode sense for page 0x05 failed")
		return err
	}

	page, err := ParseModePage05(buf)
	if err != nil {
		logging.Default().Error().Str("dev", d.addr.String()).Err(err).
			Msg("mmcdevice: parsing of mode page 0x05 failed")
		return err
	}

	bufLen := page05BufLen(buf)

	// Packet writing, with fixed packet size disabled.
	page.WriteType = WTPacket
	page.TrackMode = TMData | TMIncremental
	page.DataBlockType = DBMode12048
	page.FP = false
	page.PackedSize = 0

	if d.selectPage05(&page, buf, bufLen) {
		d.setWriteMode(WMPacket)
	}

	// Track-at-once.
	page.WriteType = WTTAO
	page.TrackMode = TMData
	page.DataBlockType = DBMode12048

	if d.selectPage05(&page, buf, bufLen) {
		d.setWriteMode(WMTAO)
	}

	// Session-at-once.
	page.WriteType = WTSAO
	page.TrackMode = TMData
	page.DataBlockType = DBMode12048

	if d.selectPage05(&page, buf, bufLen) {
		d.setWriteMode(WMSAO)
	}

	// Raw writing. The PQ guard gates the three sub-channel variants.
	page.WriteType = WTRaw
	page.TrackMode = TMData
	page.DataBlockType = DBRaw2352PQ

	if d.selectPage05(&page, buf, bufLen) {
		page.DataBlockType = DBRaw2352PWPack
		if d.selectPage05(&page, buf, bufLen) {
			d.setWriteMode(WMRaw16)
		}

		page.DataBlockType = DBRaw2352PW
		if d.selectPage05(&page, buf, bufLen) {
			d.setWriteMode(WMRaw96P)
		}

		page.DataBlockType = DBRaw2352PQ
		if d.selectPage05(&page, buf, bufLen) {
			d.setWriteMode(WMRaw96R)
		}
	}

	// Layer jump recording.
	page.WriteType = WTLayerJump
	page.TrackMode = TMData
	page.DataBlockType = DBRaw2352PW

	if d.selectPage05(&page, buf, bufLen) {
		d.setWriteMode(WMLayerJump)
	}

	return nil
}

// probeVendorFeatures detects vendor-specific recording features on
// drives listed in the quirk database.
func (d *Device) probeVendorFeatures(buf []byte) error {
	if err := d.ModeSense(0x05, buf); err != nil {
		logging.Default().Error().Str("dev", d.addr.String()).
			Msg("mmcdevice: requesting mode sense for page 0x05 failed")
		return err
	}

	page, err := ParseModePage05(buf)
	if err != nil {
		logging.Default().Error().Str("dev", d.addr.String()).Err(err).
			Msg("mmcdevice: parsing of mode page 0x05 failed")
		return err
	}

	bufLen := page05BufLen(buf)
	quirk := quirks.Default().Lookup(d.vendor + " " + d.identifier)

	if quirk.AudioMaster {
		// Reset the page before switching to the vendor write type.
		page.ResetTAO()
		if !d.selectPage05(&page, buf, bufLen) {
			page.ResetTAO()
			if !d.selectPage05(&page, buf, bufLen) {
				logging.Default().Warn().Str("dev", d.addr.String()).
					Msg("mmcdevice: unable to reset page 0x05")
			}
		}

		page.BufE = false
		page.WriteType = WTAudioMaster
		page.TrackMode = 0
		page.DataBlockType = DBRaw2352

		if d.selectPage05(&page, buf, bufLen) {
			d.setFeature(FeatAudioMaster)
		}
	}

	if quirk.ForceSpeed && page.PageLen >= 26 {
		d.setFeature(FeatForceSpeed)
	}

	if quirk.Varirec {
		d.setFeature(FeatVarirec)
	}

	return nil
}

// probeFeatureSet maps GET CONFIGURATION feature descriptors onto the
// feature bitset. Best effort: on failure the corresponding bits stay
// cleared.
func (d *Device) probeFeatureSet() {
	featureBuf := make([]byte, 32*1024)

	if err := d.GetConfiguration(featureBuf); err != nil {
		logging.Default().Warn().Str("dev", d.addr.String()).
			Int("buf_size", len(featureBuf)).
			Msg("mmcdevice: requesting configuration failed")
		return
	}

	for _, desc := range WalkFeatureDescriptors(featureBuf) {
		switch desc.Code {
		case featureCodeDVDPlusRW:
			d.setFeature(FeatReadDVDPlusRW)

			// The DVD+ write bits require the mode page 0x2a results.
			if d.Supports(FeatWriteDVDR) {
				d.setFeature(FeatWriteDVDPlusRW)
			}

		case featureCodeDVDPlusR:
			d.setFeature(FeatReadDVDPlusR)

			if d.Supports(FeatWriteDVDR) {
				d.setFeature(FeatWriteDVDPlusR)
			}

		case featureCodeDVDPlusRWDL:
			d.setFeature(FeatReadDVDPlusRWDL)

			if d.Supports(FeatWriteDVDR) {
				d.setFeature(FeatWriteDVDPlusRWDL)
			}

		case featureCodeDVDPlusRDL:
			d.setFeature(FeatReadDVDPlusRDL)

			if d.Supports(FeatWriteDVDR) {
				d.setFeature(FeatWriteDVDPlusRDL)
			}

		case featureCodeBDRead:
			d.setFeature(FeatReadBD)

		case featureCodeBDWrite:
			d.setFeature(FeatWriteBD)

		case featureCodeHDDVDRead:
			d.setFeature(FeatReadHDDVD)

		case featureCodeHDDVDWrite:
			d.setFeature(FeatWriteHDDVD)

		case featureCodeMultiRead:
			d.setFeature(FeatMultiRead)

		case featureCodeCDRead:
			d.setFeature(FeatCDRead)
		}
	}
}
