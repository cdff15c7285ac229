// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// SCSI transport contract shared by all driver implementations.

package scsi

import "fmt"

// Direction indicates the data phase of a SCSI command.
type Direction int

const (
	DirUnspecified Direction = iota
	DirRead
	DirWrite
)

// Address locates a device on the host. A transport requires either the
// opaque device node string or a valid (bus, target, lun) triple; which of
// the two is transport-dependent.
type Address struct {
	Device string
	Bus    int32
	Target int32
	Lun    int32
}

// NewAddress returns an Address with the numeric triple marked invalid.
func NewAddress() Address {
	return Address{Bus: -1, Target: -1, Lun: -1}
}

// Valid reports whether the address identifies a device in at least one of
// its two forms.
func (a Address) Valid() bool {
	if a.Device != "" {
		return true
	}
	return a.Bus >= 0 && a.Target >= 0 && a.Lun >= 0
}

func (a Address) String() string {
	if a.Device != "" {
		return a.Device
	}
	return fmt.Sprintf("%d,%d,%d", a.Bus, a.Target, a.Lun)
}

// Driver executes SCSI commands against addressed devices. Implementations
// hold per-device handles internally; the handle cache must be guarded if a
// driver is shared across goroutines.
type Driver interface {
	// Timeout sets the per-command timeout in seconds. Negative values
	// restore the default.
	Timeout(seconds int)

	// Silence suppresses log output for failing commands and returns the
	// previous setting. Used while probing with commands that are expected
	// to fail.
	Silence(enable bool) bool

	// Scan enumerates candidate optical devices.
	Scan() ([]Address, error)

	// Transport executes a CDB with an optional data buffer in the given
	// direction. A nil return means the device reported status GOOD.
	Transport(addr Address, cdb []byte, data []byte, dir Direction) error

	// TransportWithSense is Transport but hands back the raw target status
	// byte and any sense data instead of collapsing them into the error.
	TransportWithSense(addr Address, cdb []byte, data []byte, dir Direction,
		sense *[SenseLen]byte, status *byte) error
}

// ValidateCDB checks the CDB length cap shared by all transports.
func ValidateCDB(cdb []byte) error {
	if len(cdb) == 0 || len(cdb) > MaxCDBLen {
		return &Error{Op: "transport", Kind: KindInvalidParam,
			Msg: fmt.Sprintf("invalid CDB length %d", len(cdb))}
	}
	return nil
}
