// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// MMC enumerations: command opcodes, profiles, features, write modes and
// device properties.

package mmc

// MMC command opcodes. Only the four probe commands are exercised by this
// package; the remainder are reserved for callers layering disc operations
// on top of the transport.
const (
	CmdTestUnitReady             = 0x00
	CmdRequestSense              = 0x03
	CmdFormatUnit                = 0x04
	CmdInquiry                   = 0x12
	CmdStartStopUnit             = 0x1b
	CmdPreventAllowMediumRemoval = 0x1e
	CmdReadFormatCapacities      = 0x23
	CmdReadCapacity              = 0x25
	CmdReadTocPmaAtip            = 0x43
	CmdGetConfiguration          = 0x46
	CmdGetEventStatusNotify      = 0x4a
	CmdReadDiscInformation       = 0x51
	CmdReadTrackInformation      = 0x52
	CmdModeSelect10              = 0x55
	CmdModeSense10               = 0x5a
	CmdCloseTrackSession         = 0x5b
	CmdBlank                     = 0xa1
	CmdGetPerformance            = 0xac
	CmdReadDiscStructure         = 0xad
	CmdSetCDSpeed                = 0xbb
	CmdReadCD                    = 0xbe
)

// Profile identifies the kind of medium currently present (MMC-5 5.3.1).
type Profile uint16

const (
	ProfileNone             Profile = 0x0000
	ProfileNonRemovable     Profile = 0x0001
	ProfileRemovable        Profile = 0x0002
	ProfileMOErasable       Profile = 0x0003
	ProfileOpticalWriteOnce Profile = 0x0004
	ProfileASMO             Profile = 0x0005
	ProfileCDROM            Profile = 0x0008
	ProfileCDR              Profile = 0x0009
	ProfileCDRW             Profile = 0x000a
	ProfileDVDROM           Profile = 0x0010
	ProfileDVDMinusRSeq     Profile = 0x0011
	ProfileDVDRAM           Profile = 0x0012
	ProfileDVDMinusRWRestOv Profile = 0x0013
	ProfileDVDMinusRWSeq    Profile = 0x0014
	ProfileDVDMinusRDLSeq   Profile = 0x0015
	ProfileDVDMinusRDLJump  Profile = 0x0016
	ProfileDVDPlusRW        Profile = 0x001a
	ProfileDVDPlusR         Profile = 0x001b
	ProfileDVDPlusRWDL      Profile = 0x002a
	ProfileDVDPlusRDL       Profile = 0x002b
	ProfileBDROM            Profile = 0x0040
	ProfileBDRSRM           Profile = 0x0041
	ProfileBDRRRM           Profile = 0x0042
	ProfileBDRE             Profile = 0x0043
	ProfileHDDVDROM         Profile = 0x0050
	ProfileHDDVDR           Profile = 0x0051
	ProfileHDDVDRAM         Profile = 0x0052
	ProfileNonStandard      Profile = 0xffff
)

// Feature is a named capability bit of a drive.
type Feature int

const (
	// Media features.
	FeatReadCDR Feature = iota
	FeatReadCDRW
	FeatReadDVDROM
	FeatReadDVDR
	FeatReadDVDRAM
	FeatWriteCDR
	FeatWriteCDRW
	FeatWriteDVDR
	FeatWriteDVDRAM

	// Other features.
	FeatTestWrite
	FeatAudioPlay
	FeatComposite
	FeatDigitalPort1
	FeatDigitalPort2
	FeatMode2Form1
	FeatMode2Form2
	FeatMultiSession
	FeatBUP
	FeatCDDASupported
	FeatCDDAAccurate
	FeatRWSupported
	FeatRWDeintCorr
	FeatC2Pointers
	FeatISRC
	FeatUPC
	FeatReadBarCode
	FeatLock
	FeatLockState
	FeatPreventJumper
	FeatEject
	FeatSepChanVol
	FeatSepChanMute
	FeatChangeDiscPrsnt
	FeatSSS
	FeatChangeSides
	FeatRWLeadIn
	FeatBCKF
	FeatRCK
	FeatLSBF
	FeatMethod2

	// Features reported through GET CONFIGURATION.
	FeatReadDVDPlusRW
	FeatWriteDVDPlusRW
	FeatReadDVDPlusR
	FeatWriteDVDPlusR
	FeatReadDVDPlusRWDL
	FeatWriteDVDPlusRWDL
	FeatReadDVDPlusRDL
	FeatWriteDVDPlusRDL
	FeatReadBD
	FeatWriteBD
	FeatReadHDDVD
	FeatWriteHDDVD
	FeatMultiRead
	FeatCDRead

	// Vendor specific.
	FeatAudioMaster
	FeatForceSpeed
	FeatVarirec

	numFeatures
)

// WriteMode is a supported recording mode.
type WriteMode int

const (
	WMPacket WriteMode = iota
	WMTAO
	WMSAO
	WMRaw16
	WMRaw96P
	WMRaw96R
	WMLayerJump

	numWriteModes
)

// Property is a key into the numeric property table of a device.
type Property int

const (
	PropNumVolLvls    Property = iota // number of volume levels
	PropBufferSize                    // drive buffer size in KB
	PropCopyMgmtRev                   // copy management revision
	PropLoadMechanism                 // LoadMechanism
	PropRotCtrl                       // RotCtrl
	PropDABlockLen                    // AudioBlockLen
	PropMaxReadSpd                    // sectors per second
	PropCurReadSpd                    // sectors per second
	PropMaxWriteSpd                   // sectors per second
	PropCurWriteSpd                   // sectors per second

	numProperties
)

// LoadMechanism is the medium loading mechanism of a drive.
type LoadMechanism byte

const (
	LoadCaddy             LoadMechanism = 0x00
	LoadTray              LoadMechanism = 0x01
	LoadPopup             LoadMechanism = 0x02
	LoadChangerIndividual LoadMechanism = 0x04
	LoadChangerMagazine   LoadMechanism = 0x05
)

// RotCtrl is the rotation control mode of a drive.
type RotCtrl byte

const (
	RotCLV RotCtrl = 0x00
	RotCAV RotCtrl = 0x01
)

// AudioBlockLen is the block length of digital audio data.
type AudioBlockLen byte

const (
	AudioBlock32    AudioBlockLen = 0x00
	AudioBlock16    AudioBlockLen = 0x01
	AudioBlock24    AudioBlockLen = 0x02
	AudioBlock24I2S AudioBlockLen = 0x03
)

// GET CONFIGURATION feature codes recognised by the probe.
const (
	featureCodeMultiRead   = 0x001d
	featureCodeCDRead      = 0x001e
	featureCodeDVDPlusRW   = 0x002a
	featureCodeDVDPlusR    = 0x002b
	featureCodeDVDPlusRWDL = 0x003a
	featureCodeDVDPlusRDL  = 0x003b
	featureCodeBDRead      = 0x0040
	featureCodeBDWrite     = 0x0041
	featureCodeHDDVDRead   = 0x0050
	featureCodeHDDVDWrite  = 0x0051
)
