// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package mmc

import (
	"fmt"
	"math"
)

// SecToHumanSpeed converts a speed in sectors per second into the familiar
// x-multiplier for the given medium. 1x is 75 sectors/s on CD, 675 on DVD
// and 2231 on BD and HD-DVD media.
func SecToHumanSpeed(secSpeed uint32, profile Profile) float64 {
	switch profile {
	case ProfileDVDROM, ProfileDVDMinusRSeq, ProfileDVDRAM,
		ProfileDVDMinusRWRestOv, ProfileDVDMinusRWSeq,
		ProfileDVDMinusRDLSeq, ProfileDVDMinusRDLJump,
		ProfileDVDPlusRW, ProfileDVDPlusR,
		ProfileDVDPlusRWDL, ProfileDVDPlusRDL:
		return float64(secSpeed) / 675

	case ProfileBDROM, ProfileBDRSRM, ProfileBDRRRM, ProfileBDRE,
		ProfileHDDVDROM, ProfileHDDVDR, ProfileHDDVDRAM:
		return float64(secSpeed) / 2231

	default:
		return math.Floor(float64(secSpeed)/75 + 0.5)
	}
}

// SecToDispSpeed renders a speed as a display string, e.g. "48x" on CD
// media and "8.0x" on the higher density media.
func SecToDispSpeed(secSpeed uint32, profile Profile) string {
	speed := SecToHumanSpeed(secSpeed, profile)

	switch profile {
	case ProfileCDROM, ProfileCDR, ProfileCDRW:
		return fmt.Sprintf("%dx", uint32(speed))
	default:
		return fmt.Sprintf("%.1fx", speed)
	}
}
