// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package quirks maintains the vendor quirk database consulted by the
// vendor-specific phase of the capability probe.
package quirks

import (
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v2"
)

// Quirk describes the vendor-specific behaviour of a family of drives.
// The model regexp is matched against "VENDOR IDENTIFIER".
type Quirk struct {
	Family     string `yaml:"family"`
	ModelRegex string `yaml:"model_regex"`

	// AudioMaster marks drives worth probing for the Yamaha Audio Master
	// Quality recording mode.
	AudioMaster bool `yaml:"audio_master"`

	// ForceSpeed marks drives with the Yamaha Force Speed page extension.
	ForceSpeed bool `yaml:"force_speed"`

	// Varirec marks drives with Plextor VariRec laser power control.
	Varirec bool `yaml:"varirec"`

	compiled *regexp.Regexp
}

// DB is an ordered list of quirk entries; the first match wins.
type DB struct {
	Drives []Quirk `yaml:"drives"`
}

// Builtin returns the quirk entries shipped with the library. Not every
// Plextor drive actually implements VariRec; override with a database
// entry when a model reports otherwise.
func Builtin() DB {
	db := DB{
		Drives: []Quirk{
			{Family: "Yamaha CD recorders", ModelRegex: "^YAMAHA", AudioMaster: true, ForceSpeed: true},
			{Family: "Plextor recorders", ModelRegex: "^PLEXTOR", AudioMaster: true, Varirec: true},
		},
	}
	db.compile()
	return db
}

// Open reads a YAML quirk database and appends the builtin entries as
// fallback, so a partial override file keeps the defaults.
func Open(dbfile string) (DB, error) {
	var db DB

	f, err := os.Open(dbfile)
	if err != nil {
		return Builtin(), nil
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&db); err != nil {
		return db, err
	}

	db.Drives = append(db.Drives, Builtin().Drives...)
	db.compile()

	return db, nil
}

func (db *DB) compile() {
	for i, d := range db.Drives {
		db.Drives[i].compiled, _ = regexp.Compile(d.ModelRegex)
	}
}

// Lookup returns the first quirk entry matching the drive model, or a zero
// Quirk if none match.
func (db *DB) Lookup(model string) Quirk {
	for _, d := range db.Drives {
		if d.compiled != nil && d.compiled.MatchString(model) {
			return d
		}
	}
	return Quirk{}
}

var (
	mu        sync.Mutex
	defaultDB *DB
)

// Default returns the process-wide quirk database, the builtin set unless
// replaced with SetDefault.
func Default() *DB {
	mu.Lock()
	defer mu.Unlock()

	if defaultDB == nil {
		db := Builtin()
		defaultDB = &db
	}
	return defaultDB
}

// SetDefault replaces the process-wide quirk database.
func SetDefault(db DB) {
	mu.Lock()
	defer mu.Unlock()
	defaultDB = &db
}
