/*
 * mmcinfo reference tool
 * Copyright 2024-25 The mmckit Authors
 *
 * Discovers the optical drives of the host and reports their
 * capabilities, write modes and speed tables.
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmckit/mmc"
	"github.com/mmckit/mmc/logging"
	"github.com/mmckit/mmc/quirks"
	"github.com/mmckit/mmc/scsi"
)

var (
	flagUSB      bool
	flagBusOrder bool
	flagTimeout  int
	flagQuirksDB string
)

var rootCmd = &cobra.Command{
	Use:   "mmcinfo",
	Short: "Inspect optical drive capabilities via SCSI MMC",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagUSB {
			scsi.SetDefault(scsi.NewUSBDriver(scsi.USBOptions{TimeoutSeconds: flagTimeout}))
		} else {
			scsi.SetDefault(newHostDriver(flagBusOrder, flagTimeout))
		}

		if flagQuirksDB != "" {
			db, err := quirks.Open(flagQuirksDB)
			if err != nil {
				return fmt.Errorf("quirks database: %w", err)
			}
			quirks.SetDefault(db)
		}

		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the optical drives attached to this host",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := mmc.NewDeviceManager()
		if err := mgr.Scan(nil); err != nil {
			return err
		}

		for _, dev := range mgr.Devices() {
			fmt.Printf("%-16s %s\n", dev.Address(), dev.Name())
		}

		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <device>",
	Short: "Show the capabilities of one drive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := scsi.NewAddress()
		addr.Device = args[0]

		dev := mmc.NewDevice(addr)
		if err := dev.Refresh(); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}

		profile := dev.Profile()

		fmt.Printf("Device:   %s\n", dev.Name())
		fmt.Printf("Recorder: %v\n", dev.Recorder())
		fmt.Printf("Buffer:   %d KB\n", dev.Property(mmc.PropBufferSize))
		fmt.Printf("Profile:  %#04x\n", uint16(profile))

		writeModes := []struct {
			mode mmc.WriteMode
			name string
		}{
			{mmc.WMPacket, "packet"}, {mmc.WMTAO, "tao"}, {mmc.WMSAO, "sao"},
			{mmc.WMRaw16, "raw16"}, {mmc.WMRaw96P, "raw96p"},
			{mmc.WMRaw96R, "raw96r"}, {mmc.WMLayerJump, "layerjump"},
		}

		fmt.Print("Write modes:")
		for _, wm := range writeModes {
			if dev.SupportsWriteMode(wm.mode) {
				fmt.Printf(" %s", wm.name)
			}
		}
		fmt.Println()

		fmt.Print("Read speeds: ")
		for _, s := range dev.ReadSpeeds() {
			fmt.Printf("%s ", mmc.SecToDispSpeed(s, profile))
		}
		fmt.Println()

		if dev.Recorder() {
			fmt.Print("Write speeds:")
			for _, s := range dev.WriteSpeeds() {
				fmt.Printf(" %s", mmc.SecToDispSpeed(s, profile))
			}
			fmt.Println()
		}

		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <device>",
	Short: "Show the profile of the mounted medium",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := scsi.NewAddress()
		addr.Device = args[0]

		dev := mmc.NewDevice(addr)
		fmt.Printf("%#04x\n", uint16(dev.Profile()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagUSB, "usb", false,
		"use the USB Mass Storage transport instead of the host default")
	rootCmd.PersistentFlags().BoolVar(&flagBusOrder, "cdrtools-bus-order", false,
		"number buses the way cdrecord does")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", scsi.DefaultTimeout,
		"per-command timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&flagQuirksDB, "quirks", "",
		"path to a YAML vendor quirk database")

	rootCmd.AddCommand(scanCmd, infoCmd, profileCmd)
}

func main() {
	logging.SetDefault(logging.New(logging.DefaultConfig()))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
