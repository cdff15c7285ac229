// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package mmc

import (
	"github.com/mmckit/mmc/scsi"
	"github.com/mmckit/mmc/utils"
)

// mockDriver is a scripted transport for probe tests.
type mockDriver struct {
	silent  bool
	timeout int

	addrs   []scsi.Address
	scanErr error

	inquiry   []byte
	modePages map[byte][]byte
	config    []byte

	// acceptSelect decides whether a MODE SELECT candidate succeeds.
	acceptSelect func(page ModePage05) bool

	sensed             map[byte]int
	selected           [][]byte
	selectedPages      []ModePage05
	acceptedPages      []ModePage05
	silentDuringReject []bool
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		modePages:    make(map[byte][]byte),
		sensed:       make(map[byte]int),
		acceptSelect: func(ModePage05) bool { return true },
	}
}

func (m *mockDriver) addr() scsi.Address {
	a := scsi.NewAddress()
	a.Device = "/dev/mock0"
	return a
}

func (m *mockDriver) Timeout(seconds int) {
	m.timeout = seconds
}

func (m *mockDriver) Silence(enable bool) bool {
	prev := m.silent
	m.silent = enable
	return prev
}

func (m *mockDriver) Scan() ([]scsi.Address, error) {
	return m.addrs, m.scanErr
}

func (m *mockDriver) Transport(addr scsi.Address, cdb, data []byte, dir scsi.Direction) error {
	var sense [scsi.SenseLen]byte
	var status byte

	if err := m.TransportWithSense(addr, cdb, data, dir, &sense, &status); err != nil {
		return err
	}
	if status != scsi.StatusGood {
		return &scsi.Error{Op: "transport", Device: addr.String(),
			Kind: scsi.KindCheckCondition, CDB: cdb, Status: status, Sense: sense}
	}
	return nil
}

func (m *mockDriver) TransportWithSense(addr scsi.Address, cdb, data []byte, dir scsi.Direction,
	sense *[scsi.SenseLen]byte, status *byte) error {

	if err := scsi.ValidateCDB(cdb); err != nil {
		return err
	}

	*status = scsi.StatusCheckCondition

	switch cdb[0] {
	case CmdInquiry:
		if m.inquiry == nil {
			return nil
		}
		copy(data, m.inquiry)
		*status = scsi.StatusGood

	case CmdModeSense10:
		pageCode := cdb[2] & 0x3f
		m.sensed[pageCode]++

		page, ok := m.modePages[pageCode]
		if !ok {
			return nil
		}
		copy(data, page)
		*status = scsi.StatusGood

	case CmdGetConfiguration:
		if m.config == nil {
			return nil
		}
		copy(data, m.config)
		*status = scsi.StatusGood

	case CmdModeSelect10:
		sent := append([]byte(nil), data...)
		m.selected = append(m.selected, sent)

		page, err := parseSelectedPage(sent)
		if err != nil {
			// Not a page 0x05 image; accept without recording a page.
			*status = scsi.StatusGood
			return nil
		}
		m.selectedPages = append(m.selectedPages, page)

		if m.acceptSelect(page) {
			m.acceptedPages = append(m.acceptedPages, page)
			*status = scsi.StatusGood
		} else {
			m.silentDuringReject = append(m.silentDuringReject, m.silent)
		}
	}

	return nil
}

// parseSelectedPage decodes the page 0x05 image of a MODE SELECT transfer.
// The reserved header bytes were cleared by the sender, so a fresh header
// is synthesised for the parser.
func parseSelectedPage(data []byte) (ModePage05, error) {
	buf := make([]byte, modePageHeaderLen+modePage05Len)
	utils.WriteUint16(uint16(modePage05Len+6), buf, 0)
	copy(buf[modePageHeaderLen:], data[modePageHeaderLen:])
	return ParseModePage05(buf)
}
