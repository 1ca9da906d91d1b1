/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dc0d/onexit"
	"github.com/launix-de/nova/scm"
	"gopkg.in/yaml.v3"
)

type CephConfig struct {
	UserName    string `yaml:"username"`  // e.g. "client.admin"
	ClusterName string `yaml:"cluster"`   // often "ceph"
	ConfFile    string `yaml:"conf_file"` // optional
}

type SettingsT struct {
	History          string        `yaml:"history"`           // readline history file
	Library          string        `yaml:"library"`           // default target of :save and startup import
	Autosave         bool          `yaml:"autosave"`          // save the library on exit
	AutosaveInterval time.Duration `yaml:"autosave_interval"` // also save periodically, e.g. "10m"
	Listen           string        `yaml:"listen"`            // address of the network REPL
	User             string        `yaml:"user"`              // basic auth of the network REPL
	Password         string        `yaml:"password"`          // empty disables basic auth
	TraceDir         string        `yaml:"tracedir"`
	Trace            bool          `yaml:"trace"`
	Imports          []string      `yaml:"imports"` // files evaluated at startup
	Watch            []string      `yaml:"watch"`   // files re-imported on change
	S3               S3Config      `yaml:"s3"`
	Ceph             CephConfig    `yaml:"ceph"`
}

var Settings SettingsT = SettingsT{History: ".nova-history", User: "root"}

// LoadSettings reads a YAML settings file over the current Settings.
// Unknown keys are an error.
func LoadSettings(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("settings: open %s: %w", path, err)
	}
	defer file.Close()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&Settings); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty file
		}
		return fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return nil
}

var autosaveSession *scm.Session
var shutdownOnce sync.Once
var autosaveScheduler Scheduler

func autosave() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := Save(ctx, Settings.Library, autosaveSession); err != nil {
		log.Println("autosave:", err)
	}
}

func scheduleAutosave() {
	autosaveScheduler.ScheduleAfter(Settings.AutosaveInterval, func() {
		autosave()
		scheduleAutosave()
	})
}

// call this after you filled Settings
func InitSettings(s *scm.Session) error {
	scm.TraceDir = Settings.TraceDir
	if Settings.Trace {
		if err := scm.SetTrace(true); err != nil {
			return err
		}
	}
	autosaveSession = s
	if Settings.Autosave && Settings.Library != "" && Settings.AutosaveInterval > 0 {
		scheduleAutosave()
	}
	onexit.Register(Shutdown) // close trace file and autosave on exit
	return nil
}

// Shutdown saves the library if autosave is on and closes the trace file.
// Only the first call does anything.
func Shutdown() {
	shutdownOnce.Do(func() {
		autosaveScheduler.Stop()
		if Settings.Autosave && Settings.Library != "" && autosaveSession != nil {
			autosave()
		}
		if err := scm.SetTrace(false); err != nil {
			log.Println("trace:", err)
		}
	})
}

func init() {
	scm.DeclareCommand(&scm.Command{Name: "settings", Desc: "show the current settings", Run: func(ctx context.Context, s *scm.Session, args string) error {
		shown := Settings
		if shown.S3.SecretAccessKey != "" {
			shown.S3.SecretAccessKey = "***"
		}
		if shown.Password != "" {
			shown.Password = "***"
		}
		out, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		_, err = s.Out.Write(out)
		return err
	}})
}
