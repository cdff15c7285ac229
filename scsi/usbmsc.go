// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// USB Mass Storage Bulk-Only driver. Used on hosts without an sg layer and
// for external drives that are not enumerated by the platform SCSI stack.

package scsi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/mmckit/mmc/logging"
)

// USB Mass Storage Bulk-Only protocol constants
const (
	cbwSignature = 0x43425355 // "USBC" little-endian
	cswSignature = 0x53425355 // "USBS" little-endian
	cbwSize      = 31
	cswSize      = 13

	cbwDirOut = 0x00
	cbwDirIn  = 0x80

	cswPassed     = 0x00
	cswFailed     = 0x01
	cswPhaseError = 0x02
)

// buildCBW frames a SCSI CDB into a 31-byte Command Block Wrapper.
func buildCBW(tag uint32, dataLen uint32, direction byte, cdb []byte) []byte {
	cbw := make([]byte, cbwSize)

	putUint32LE(cbw, 0, cbwSignature)
	putUint32LE(cbw, 4, tag)
	putUint32LE(cbw, 8, dataLen)
	cbw[12] = direction
	cbw[13] = 0 // LUN
	cbw[14] = byte(len(cdb))
	copy(cbw[15:], cdb)

	return cbw
}

type csw struct {
	tag     uint32
	residue uint32
	status  byte
}

// parseCSW decodes a 13-byte Command Status Wrapper.
func parseCSW(data []byte) (csw, error) {
	if len(data) < cswSize {
		return csw{}, errors.New("CSW too short")
	}
	if getUint32LE(data, 0) != cswSignature {
		return csw{}, errors.New("invalid CSW signature")
	}

	return csw{
		tag:     getUint32LE(data, 4),
		residue: getUint32LE(data, 8),
		status:  data[12],
	}, nil
}

func putUint32LE(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func getUint32LE(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

// usbHandle is a claimed Bulk-Only interface of one drive.
type usbHandle struct {
	dev    *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	epIn   *gousb.InEndpoint
	epOut  *gousb.OutEndpoint
}

func (h *usbHandle) close() {
	if h.intf != nil {
		h.intf.Close()
	}
	if h.config != nil {
		h.config.Close()
	}
	if h.dev != nil {
		h.dev.Close()
	}
}

// USBOptions configure the USB Mass Storage driver at construction time.
type USBOptions struct {
	// TimeoutSeconds overrides the default per-command timeout.
	TimeoutSeconds int
}

// USBDriver issues commands over USB Mass Storage Bulk-Only transport.
type USBDriver struct {
	mu      sync.Mutex
	ctx     *gousb.Context
	timeout int
	silent  bool
	tag     uint32
	handles map[string]*usbHandle
}

// NewUSBDriver constructs a USB Mass Storage driver.
func NewUSBDriver(opts USBOptions) *USBDriver {
	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &USBDriver{
		timeout: timeout,
		tag:     1,
		handles: make(map[string]*usbHandle),
	}
}

func (d *USBDriver) Timeout(seconds int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if seconds < 0 {
		seconds = DefaultTimeout
	}
	d.timeout = seconds
}

func (d *USBDriver) Silence(enable bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.silent
	d.silent = enable
	return prev
}

// Close releases all claimed interfaces and the USB context.
func (d *USBDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, h := range d.handles {
		h.close()
	}
	d.handles = make(map[string]*usbHandle)

	if d.ctx != nil {
		d.ctx.Close()
		d.ctx = nil
	}
}

func (d *USBDriver) contextLocked() *gousb.Context {
	if d.ctx == nil {
		d.ctx = gousb.NewContext()
	}
	return d.ctx
}

func usbAddress(desc *gousb.DeviceDesc) Address {
	addr := NewAddress()
	addr.Device = fmt.Sprintf("usb:%s:%s@%d.%d", desc.Vendor, desc.Product, desc.Bus, desc.Address)
	addr.Bus = int32(desc.Bus)
	addr.Target = int32(desc.Address)
	addr.Lun = 0
	return addr
}

// hasMassStorage reports whether any interface of the device is USB Mass
// Storage (class 8).
func hasMassStorage(desc *gousb.DeviceDesc) bool {
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassMassStorage {
					return true
				}
			}
		}
	}
	return false
}

// Scan enumerates mass-storage capable USB devices.
func (d *USBDriver) Scan() ([]Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var addresses []Address

	devs, err := d.contextLocked().OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if hasMassStorage(desc) {
			addresses = append(addresses, usbAddress(desc))
		}
		return false
	})
	for _, dev := range devs {
		dev.Close()
	}
	if err != nil {
		serr := &Error{Op: "scan", Kind: KindTransport, Inner: err}
		d.logErrorLocked(serr)
		return nil, serr
	}

	return addresses, nil
}

// openLocked returns a cached handle for the address, claiming the drive's
// Bulk-Only interface on first use. Caller holds d.mu.
func (d *USBDriver) openLocked(addr Address) (*usbHandle, error) {
	if h, ok := d.handles[addr.Device]; ok {
		return h, nil
	}

	devs, err := d.contextLocked().OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return usbAddress(desc).Device == addr.Device
	})
	if err != nil || len(devs) == 0 {
		for _, dev := range devs {
			dev.Close()
		}
		return nil, &Error{Op: "open", Device: addr.String(), Kind: KindInvalidAddress,
			Msg: "no matching USB device", Inner: err}
	}

	dev := devs[0]
	for _, extra := range devs[1:] {
		extra.Close()
	}

	h, err := claimBulkOnly(dev)
	if err != nil {
		dev.Close()
		return nil, &Error{Op: "open", Device: addr.String(), Kind: KindTransport, Inner: err}
	}

	d.handles[addr.Device] = h
	return h, nil
}

// claimBulkOnly claims a mass-storage interface and resolves its bulk
// endpoint pair.
func claimBulkOnly(dev *gousb.Device) (*usbHandle, error) {
	dev.SetAutoDetach(true)

	config, err := dev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}

	var intf *gousb.Interface
	for _, iface := range config.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == gousb.ClassMassStorage {
				intf, err = config.Interface(iface.Number, alt.Alternate)
				if err != nil {
					continue
				}
				break
			}
		}
		if intf != nil {
			break
		}
	}
	if intf == nil {
		config.Close()
		return nil, errors.New("no mass storage interface")
	}

	var epIn *gousb.InEndpoint
	var epOut *gousb.OutEndpoint
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionIn {
			if in, err := intf.InEndpoint(ep.Number); err == nil {
				epIn = in
			}
		} else {
			if out, err := intf.OutEndpoint(ep.Number); err == nil {
				epOut = out
			}
		}
	}
	if epIn == nil || epOut == nil {
		intf.Close()
		config.Close()
		return nil, errors.New("no bulk endpoint pair")
	}

	return &usbHandle{dev: dev, config: config, intf: intf, epIn: epIn, epOut: epOut}, nil
}

func (d *USBDriver) Transport(addr Address, cdb []byte, data []byte, dir Direction) error {
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

func (d *USBDriver) TransportWithSense(addr Address, cdb []byte, data []byte, dir Direction,
	sense *[SenseLen]byte, status *byte) error {

	if err := ValidateCDB(cdb); err != nil {
		d.logError(err)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	h, err := d.openLocked(addr)
	if err != nil {
		serr, ok := err.(*Error)
		if !ok {
			serr = &Error{Op: "open", Device: addr.String(), Kind: KindTransport, Inner: err}
		}
		d.logErrorLocked(serr)
		return serr
	}

	cswStatus, err := d.exchangeLocked(h, cdb, data, dir)
	if err != nil {
		serr := &Error{Op: "transport", Device: addr.String(), Kind: KindTransport,
			CDB: cdb, Inner: err}
		d.logErrorLocked(serr)
		return serr
	}

	if cswStatus == cswPassed {
		*status = StatusGood
		return nil
	}

	// The Bulk-Only protocol collapses a check condition into a failed CSW;
	// recover the sense data with REQUEST SENSE.
	*status = StatusCheckCondition

	senseBuf := make([]byte, 18)
	reqSense := make([]byte, 6)
	reqSense[0] = 0x03
	reqSense[4] = byte(len(senseBuf))

	if st, err := d.exchangeLocked(h, reqSense, senseBuf, DirRead); err == nil && st == cswPassed {
		copy(sense[:], senseBuf)
	}

	return nil
}

// exchangeLocked runs one CBW / data / CSW round trip. Caller holds d.mu.
func (d *USBDriver) exchangeLocked(h *usbHandle, cdb []byte, data []byte, dir Direction) (byte, error) {
	timeout := time.Duration(d.timeout) * time.Second

	cbwDir := byte(cbwDirOut)
	if dir == DirRead {
		cbwDir = cbwDirIn
	}

	cbw := buildCBW(d.tag, uint32(len(data)), cbwDir, cdb)
	d.tag++

	ctx, cancel := timeoutContext(timeout)
	defer cancel()

	if _, err := h.epOut.WriteContext(ctx, cbw); err != nil {
		return 0, fmt.Errorf("CBW write: %w", err)
	}

	if len(data) > 0 {
		dctx, dcancel := timeoutContext(timeout)
		var err error
		switch dir {
		case DirWrite:
			_, err = h.epOut.WriteContext(dctx, data)
		default:
			_, err = h.epIn.ReadContext(dctx, data)
		}
		dcancel()
		// On a data phase error, still try to collect the CSW; the device
		// may have stalled the data phase to signal a failed command.
		_ = err
	}

	cctx, ccancel := timeoutContext(timeout)
	defer ccancel()

	cswBuf := make([]byte, cswSize)
	if _, err := h.epIn.ReadContext(cctx, cswBuf); err != nil {
		return 0, fmt.Errorf("CSW read: %w", err)
	}

	result, err := parseCSW(cswBuf)
	if err != nil {
		return 0, err
	}

	return result.status, nil
}

func timeoutContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func (d *USBDriver) logError(err *Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logErrorLocked(err)
}

func (d *USBDriver) logErrorLocked(err *Error) {
	if d.silent {
		return
	}
	logging.Default().Error().Str("driver", "usbmsc").Msg(err.Error())
}
