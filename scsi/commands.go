// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// SCSI command definitions.

package scsi

const (
	// Maximum length of a command descriptor block
	MaxCDBLen = 16

	// Length of a fixed-format sense data block
	SenseLen = 24

	// Minimum length of standard INQUIRY response
	InqReplyLen = 36

	// Per-command timeout in seconds
	DefaultTimeout = 60
)

// SCSI status codes (SAM-3, see http://www.t10.org/lists/2status.htm)
const (
	StatusGood                = 0x00
	StatusCheckCondition      = 0x02
	StatusConditionMet        = 0x04
	StatusBusy                = 0x08
	StatusIntermediate        = 0x10
	StatusIntermediateCondMet = 0x14
	StatusReservationConflict = 0x18
	StatusCommandTerminated   = 0x22
	StatusQueueFull           = 0x28
)

// SCSI CDB types
type CDB6 [6]byte
type CDB10 [10]byte
type CDB16 [16]byte
