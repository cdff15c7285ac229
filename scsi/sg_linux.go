// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// SCSI generic (sg) driver for Linux hosts.

package scsi

import (
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mmckit/mmc/logging"
)

const (
	sgDxferNone    = -1
	sgDxferToDev   = -2
	sgDxferFromDev = -3

	sgIO        = 0x2285
	sgGetScsiID = 0x2276

	// DID_TIME_OUT in the sg host_status field
	sgHostTimeout = 0x03
)

// sgIoHdr is the v3 SG_IO interface control structure
// (<scsi/sg.h> struct sg_io_hdr).
type sgIoHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uintptr
	cmdp           uintptr
	sbp            uintptr
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// sgScsiID is the SG_GET_SCSI_ID result (<scsi/sg.h> struct sg_scsi_id).
type sgScsiID struct {
	hostNo      int32
	channel     int32
	scsiID      int32
	lun         int32
	scsiType    int32
	hCmdPerLun  int16
	dQueueDepth int16
	unused      [2]int32
}

// SGOptions configure the sg driver at construction time.
type SGOptions struct {
	// CdrtoolsBusOrder renumbers bus IDs by sorting host adapter numbers,
	// matching the numbering scheme used by cdrecord.
	CdrtoolsBusOrder bool

	// TimeoutSeconds overrides the default per-command timeout.
	TimeoutSeconds int
}

// SGDriver issues commands through the Linux SCSI generic interface. The
// open-handle cache is guarded so the driver may be shared across
// goroutines.
type SGDriver struct {
	mu      sync.Mutex
	opts    SGOptions
	timeout int
	silent  bool
	handles map[string]int
}

// NewSGDriver constructs an sg driver.
func NewSGDriver(opts SGOptions) *SGDriver {
	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &SGDriver{
		opts:    opts,
		timeout: timeout,
		handles: make(map[string]int),
	}
}

func (d *SGDriver) Timeout(seconds int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if seconds < 0 {
		seconds = DefaultTimeout
	}
	d.timeout = seconds
}

func (d *SGDriver) Silence(enable bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.silent
	d.silent = enable
	return prev
}

// Close releases all cached device handles.
func (d *SGDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, fd := range d.handles {
		unix.Close(fd)
	}
	d.handles = make(map[string]int)
}

// Scan enumerates optical drives from the /dev/sr* device nodes and fills
// in each drive's (bus, target, lun) triple from the sg layer.
func (d *SGDriver) Scan() ([]Address, error) {
	files, err := filepath.Glob("/dev/sr*")
	if err != nil {
		return nil, &Error{Op: "scan", Kind: KindTransport, Inner: err}
	}

	var addresses []Address
	for _, file := range files {
		addr := NewAddress()
		addr.Device = file

		if fd, err := unix.Open(file, unix.O_RDWR|unix.O_NONBLOCK, 0600); err == nil {
			var id sgScsiID
			if err := ioctl(fd, sgGetScsiID, uintptr(unsafe.Pointer(&id))); err == nil {
				addr.Bus = id.hostNo
				addr.Target = id.scsiID
				addr.Lun = id.lun
			}
			unix.Close(fd)
		}

		addresses = append(addresses, addr)
	}

	if d.opts.CdrtoolsBusOrder {
		renumberBuses(addresses)
	}

	return addresses, nil
}

// renumberBuses re-assigns bus IDs as dense indexes over the sorted set of
// host adapter numbers, the way cdrecord numbers its buses.
func renumberBuses(addresses []Address) {
	var hosts []int32
	seen := make(map[int32]bool)

	for _, addr := range addresses {
		if addr.Bus >= 0 && !seen[addr.Bus] {
			seen[addr.Bus] = true
			hosts = append(hosts, addr.Bus)
		}
	}

	sort.Slice(hosts, func(i, j int) bool { return hosts[i] < hosts[j] })

	remap := make(map[int32]int32, len(hosts))
	for i, h := range hosts {
		remap[h] = int32(i)
	}

	for i := range addresses {
		if addresses[i].Bus >= 0 {
			addresses[i].Bus = remap[addresses[i].Bus]
		}
	}
}

func (d *SGDriver) Transport(addr Address, cdb []byte, data []byte, dir Direction) error {
	var sense [SenseLen]byte
	var status byte

	if err := d.TransportWithSense(addr, cdb, data, dir, &sense, &status); err != nil {
		return err
	}

	if status != StatusGood {
		err := &Error{Op: "transport", Device: addr.String(), Kind: KindCheckCondition,
			CDB: cdb, Status: status, Sense: sense}
		d.logError(err)
		return err
	}

	return nil
}

func (d *SGDriver) TransportWithSense(addr Address, cdb []byte, data []byte, dir Direction,
	sense *[SenseLen]byte, status *byte) error {

	if err := ValidateCDB(cdb); err != nil {
		d.logError(err)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if addr.Device == "" {
		err := &Error{Op: "transport", Device: addr.String(), Kind: KindInvalidAddress,
			Msg: "sg driver requires a device node"}
		d.logErrorLocked(err)
		return err
	}

	fd, err := d.openLocked(addr.Device)
	if err != nil {
		d.logErrorLocked(err)
		return err
	}

	hdr := sgIoHdr{
		interfaceID: 'S',
		cmdLen:      uint8(len(cdb)),
		timeout:     uint32(d.timeout) * 1000,
	}

	switch dir {
	case DirRead:
		hdr.dxferDirection = sgDxferFromDev
	case DirWrite:
		hdr.dxferDirection = sgDxferToDev
	default:
		hdr.dxferDirection = sgDxferNone
	}

	senseBuf := make([]byte, 32)
	hdr.cmdp = uintptr(unsafe.Pointer(&cdb[0]))
	hdr.sbp = uintptr(unsafe.Pointer(&senseBuf[0]))
	hdr.mxSbLen = uint8(len(senseBuf))

	if len(data) > 0 {
		hdr.dxferLen = uint32(len(data))
		hdr.dxferp = uintptr(unsafe.Pointer(&data[0]))
	}

	if err := ioctl(fd, sgIO, uintptr(unsafe.Pointer(&hdr))); err != nil {
		serr := &Error{Op: "transport", Device: addr.String(), Kind: KindTransport,
			CDB: cdb, Inner: err}
		if errno, ok := err.(syscall.Errno); ok {
			serr.Errno = errno
		}
		d.logErrorLocked(serr)
		return serr
	}

	if hdr.hostStatus == sgHostTimeout {
		serr := &Error{Op: "transport", Device: addr.String(), Kind: KindTimeout, CDB: cdb}
		d.logErrorLocked(serr)
		return serr
	}

	copy(sense[:], senseBuf[:SenseLen])
	*status = hdr.status

	return nil
}

// openLocked returns a cached handle for the device node, opening it on
// first use. Caller holds d.mu.
func (d *SGDriver) openLocked(device string) (int, error) {
	if fd, ok := d.handles[device]; ok {
		return fd, nil
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NONBLOCK, 0600)
	if err != nil {
		return -1, &Error{Op: "open", Device: device, Kind: KindTransport, Inner: err}
	}

	d.handles[device] = fd
	return fd, nil
}

func (d *SGDriver) logError(err *Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logErrorLocked(err)
}

func (d *SGDriver) logErrorLocked(err *Error) {
	if d.silent {
		return
	}
	logging.Default().Error().Str("driver", "sg").Msg(err.Error())
}

// ioctl executes an ioctl command on the specified file descriptor.
func ioctl(fd int, cmd, ptr uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), cmd, ptr)
	if errno != 0 {
		return errno
	}
	return nil
}

func newPlatformDriver() Driver {
	return NewSGDriver(SGOptions{})
}
