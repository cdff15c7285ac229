// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package mmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmckit/mmc/utils"
)

func mockInquiry(vendor, product, revision string) []byte {
	buf := make([]byte, 36)
	buf[0] = 0x05
	buf[1] = 0x80
	copy(buf[8:16], padASCII(vendor, 8))
	copy(buf[16:32], padASCII(product, 16))
	copy(buf[32:36], padASCII(revision, 4))
	return buf
}

func padASCII(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

// mockConfig assembles a GET CONFIGURATION response listing the given
// feature codes with empty payloads.
func mockConfig(codes ...uint16) []byte {
	buf := make([]byte, 8+4*len(codes))
	utils.WriteUint32(uint32(4+4*len(codes)), buf, 0)
	utils.WriteUint16(uint16(ProfileCDR), buf, 6)

	for i, code := range codes {
		off := 8 + 4*i
		utils.WriteUint16(code, buf, off)
		buf[off+2] = 0x01
		buf[off+3] = 0x00
	}

	return buf
}

func recorderDriver() *mockDriver {
	drv := newMockDriver()
	drv.inquiry = mockInquiry("MOCK", "BURNER-1000", "1.00")
	drv.modePages[0x2a] = buildModePage2A()
	drv.modePages[0x05] = buildModePage05()
	drv.config = mockConfig(0x002b, 0x0040)
	return drv
}

func TestRefreshProbe(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	drv.acceptSelect = func(page ModePage05) bool {
		return page.WriteType == WTTAO || page.WriteType == WTSAO
	}

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())

	// Mode page 0x2a flags.
	assert.True(dev.Supports(FeatWriteCDR))
	assert.True(dev.Supports(FeatWriteDVDR))
	assert.True(dev.Supports(FeatReadCDR))
	assert.True(dev.Supports(FeatAudioPlay))
	assert.True(dev.Supports(FeatReadDVDR))
	assert.False(dev.Supports(FeatMethod2))
	assert.True(dev.Recorder())

	// Feature descriptors: DVD+R read always, DVD+R write only because
	// the drive writes DVD-R, BD read.
	assert.True(dev.Supports(FeatReadDVDPlusR))
	assert.True(dev.Supports(FeatWriteDVDPlusR))
	assert.True(dev.Supports(FeatReadBD))
	assert.False(dev.Supports(FeatReadDVDPlusRW))
	assert.False(dev.Supports(FeatWriteBD))

	// Write modes accepted by the device.
	assert.True(dev.SupportsWriteMode(WMTAO))
	assert.True(dev.SupportsWriteMode(WMSAO))
	assert.False(dev.SupportsWriteMode(WMPacket))
	assert.False(dev.SupportsWriteMode(WMRaw16))
	assert.False(dev.SupportsWriteMode(WMRaw96P))
	assert.False(dev.SupportsWriteMode(WMRaw96R))
	assert.False(dev.SupportsWriteMode(WMLayerJump))

	// Every write mode bit is backed by an accepted MODE SELECT.
	var acceptedTAO, acceptedSAO bool
	for _, page := range drv.acceptedPages {
		switch page.WriteType {
		case WTTAO:
			acceptedTAO = true
		case WTSAO:
			acceptedSAO = true
		}
	}
	assert.True(acceptedTAO)
	assert.True(acceptedSAO)

	// No vendor features on an unlisted vendor.
	assert.False(dev.Supports(FeatAudioMaster))
	assert.False(dev.Supports(FeatForceSpeed))
	assert.False(dev.Supports(FeatVarirec))
}

func TestRefreshProperties(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())

	// 7056 KB/s * 1000 / 2352 = 3000 sectors/s.
	assert.Equal(uint32(3000), dev.Property(PropMaxReadSpd))
	assert.Equal(uint32(1500), dev.Property(PropCurReadSpd))
	assert.Equal(uint32(1500), dev.Property(PropMaxWriteSpd))
	assert.Equal(uint32(1500), dev.Property(PropCurWriteSpd))
	assert.Equal(uint32(0x0100), dev.Property(PropNumVolLvls))
	assert.Equal(uint32(0x07c0), dev.Property(PropBufferSize))
	assert.Equal(uint32(0x0001), dev.Property(PropCopyMgmtRev))
	assert.Equal(uint32(LoadTray), dev.Property(PropLoadMechanism))

	assert.Equal(uint32(0), dev.Property(Property(99)), "unknown keys read as zero")
}

func TestRefreshSpeedTables(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())

	// 3000 sectors/s is 40x; the ladder halves the multiplier.
	assert.Equal([]uint32{3000, 1500, 750, 375, 150, 75}, dev.ReadSpeeds())

	// The advertised write speed descriptor takes precedence over a
	// synthesised ladder.
	assert.Equal([]uint32{1500}, dev.WriteSpeeds())

	for i := 1; i < len(dev.ReadSpeeds()); i++ {
		assert.LessOrEqual(dev.ReadSpeeds()[i], dev.ReadSpeeds()[i-1])
	}
}

func TestRefreshWriteSpeedLadderFallback(t *testing.T) {
	drv := recorderDriver()

	// Remove the advertised write speed descriptor.
	page := drv.modePages[0x2a]
	utils.WriteUint16(0, page[8:], 30)

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())

	// 1500 sectors/s is 20x.
	assert.Equal(t, []uint32{1500, 750, 375, 150, 75}, dev.WriteSpeeds())
}

func TestSpeedLadder(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]uint32{3000, 1500, 750, 375, 150, 75}, speedLadder(3000))
	assert.Equal([]uint32{75}, speedLadder(75))
	assert.Nil(speedLadder(0))

	// Rounds to the nearest multiplier.
	assert.Equal([]uint32{150, 75}, speedLadder(140))
}

func TestRefreshNonRecorder(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()

	// Clear all write capability flags.
	drv.modePages[0x2a][8+3] = 0x00

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())

	assert.False(dev.Recorder())
	assert.Empty(dev.WriteSpeeds())
	assert.Equal(uint16(0), dev.writeModes)

	assert.Zero(drv.sensed[0x05], "write parameter page not sensed on a reader")
	assert.Empty(drv.selected, "no MODE SELECT probes on a reader")

	// The DVD+ write bit requires DVD-R write capability.
	assert.True(dev.Supports(FeatReadDVDPlusR))
	assert.False(dev.Supports(FeatWriteDVDPlusR))
}

func TestRefreshRawGuard(t *testing.T) {
	drv := recorderDriver()

	// Reject the PQ guard; the raw variants must not even be attempted.
	drv.acceptSelect = func(page ModePage05) bool {
		return !(page.WriteType == WTRaw && page.DataBlockType == DBRaw2352PQ)
	}

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())

	assert.False(t, dev.SupportsWriteMode(WMRaw16))
	assert.False(t, dev.SupportsWriteMode(WMRaw96P))
	assert.False(t, dev.SupportsWriteMode(WMRaw96R))

	for _, page := range drv.selectedPages {
		if page.WriteType == WTRaw {
			assert.Equal(t, DBRaw2352PQ, page.DataBlockType,
				"only the guard combination may be offered")
		}
	}
}

func TestRefreshFatalPhases(t *testing.T) {
	assert := assert.New(t)

	// Missing capabilities page.
	drv := recorderDriver()
	delete(drv.modePages, 0x2a)
	dev := NewDeviceWithDriver(drv.addr(), drv)
	assert.Error(dev.Refresh())

	// Corrupt capabilities page.
	drv = recorderDriver()
	utils.WriteUint16(100, drv.modePages[0x2a][8:], 8)
	dev = NewDeviceWithDriver(drv.addr(), drv)
	assert.Error(dev.Refresh())

	// Recorder without a write parameters page.
	drv = recorderDriver()
	delete(drv.modePages, 0x05)
	dev = NewDeviceWithDriver(drv.addr(), drv)
	assert.Error(dev.Refresh())
}

func TestRefreshFeatureScanBestEffort(t *testing.T) {
	drv := recorderDriver()
	drv.config = nil

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh(), "a failed feature scan is not fatal")

	assert.False(t, dev.Supports(FeatReadDVDPlusR))
	assert.True(t, dev.Supports(FeatWriteCDR))
}

func TestRefreshReplacesState(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())
	assert.True(dev.Recorder())
	assert.NotZero(dev.writeModes)

	// The drive turns into a reader; nothing of the old state survives.
	drv.modePages[0x2a][8+3] = 0x00
	drv.config = mockConfig()

	require.NoError(t, dev.Refresh())
	assert.False(dev.Recorder())
	assert.Zero(dev.writeModes)
	assert.Empty(dev.WriteSpeeds())
	assert.False(dev.Supports(FeatReadDVDPlusR))
}

func TestRefreshSilenceScope(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	drv.acceptSelect = func(page ModePage05) bool {
		return page.WriteType == WTTAO
	}

	dev := NewDeviceWithDriver(drv.addr(), drv)

	assert.False(drv.silent)
	require.NoError(t, dev.Refresh())
	assert.False(drv.silent, "silence restored after the probe")

	require.NotEmpty(t, drv.silentDuringReject)
	for _, silent := range drv.silentDuringReject {
		assert.True(silent, "expected failures are silenced")
	}
}

func TestRefreshSilenceRestoredOnFailure(t *testing.T) {
	drv := recorderDriver()
	delete(drv.modePages, 0x2a)

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.Error(t, dev.Refresh())
	assert.False(t, drv.silent)
}

func TestRefreshSilencePreservesPriorSetting(t *testing.T) {
	drv := recorderDriver()
	drv.Silence(true)

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())
	assert.True(t, drv.silent, "caller-enabled silence survives the probe")
}

func TestRefreshYamahaFeatures(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	drv.inquiry = mockInquiry("YAMAHA", "CRW-F1", "1.0d")
	drv.acceptSelect = func(page ModePage05) bool {
		return page.WriteType == WTTAO || page.WriteType == WTAudioMaster
	}

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())

	assert.True(dev.Supports(FeatAudioMaster))
	assert.True(dev.Supports(FeatForceSpeed), "page length 0x32 is above the force speed floor")
	assert.False(dev.Supports(FeatVarirec))

	// The audio master attempt carries the vendor write type over a reset
	// page.
	var sawAudioMaster bool
	for _, page := range drv.acceptedPages {
		if page.WriteType == WTAudioMaster {
			sawAudioMaster = true
			assert.Equal(byte(0), page.TrackMode)
			assert.Equal(DBRaw2352, page.DataBlockType)
			assert.False(page.BufE)
		}
	}
	assert.True(sawAudioMaster)
}

func TestRefreshPlextorFeatures(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	drv.inquiry = mockInquiry("PLEXTOR", "DVDR   PX-712A", "1.06")
	drv.acceptSelect = func(page ModePage05) bool {
		return page.WriteType != WTAudioMaster
	}

	dev := NewDeviceWithDriver(drv.addr(), drv)
	require.NoError(t, dev.Refresh())

	assert.False(dev.Supports(FeatAudioMaster), "drive rejected the audio master page")
	assert.False(dev.Supports(FeatForceSpeed))
	assert.True(dev.Supports(FeatVarirec))
}

func TestProfileQuery(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	dev := NewDeviceWithDriver(drv.addr(), drv)

	assert.Equal(ProfileCDR, dev.Profile())

	drv.config = nil
	assert.Equal(ProfileNone, dev.Profile())
}

func TestDeviceIdentity(t *testing.T) {
	assert := assert.New(t)

	drv := recorderDriver()
	drv.inquiry = mockInquiry("PLEXTOR", "DVDR   PX-712A", "1.06")

	dev := NewDeviceWithDriver(drv.addr(), drv)
	assert.Equal("PLEXTOR", dev.Vendor())
	assert.Equal("DVDR   PX-712A", dev.Identifier())
	assert.Equal("1.06", dev.Revision())
	assert.Equal("PLEXTOR DVDR   PX-712A 1.06", dev.Name())
}

func TestDeviceIdentityInquiryFailure(t *testing.T) {
	drv := recorderDriver()
	drv.inquiry = nil

	dev := NewDeviceWithDriver(drv.addr(), drv)
	assert.Equal(t, "", dev.Vendor())

	// The device is still usable; the probe simply yields no
	// vendor-specific features.
	require.NoError(t, dev.Refresh())
	assert.False(t, dev.Supports(FeatAudioMaster))
	assert.True(t, dev.Supports(FeatWriteCDR))
}
