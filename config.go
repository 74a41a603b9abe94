// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"os/user"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/gdamore/tcell/v2"
)

type theme struct {
	Name                        string `toml:"name"`
	PrimitiveBackgroundColor    string `toml:"primitive_background"`
	ContrastBackgroundColor     string `toml:"contrast_background"`
	MoreContrastBackgroundColor string `toml:"more_contrast_background"`
	BorderColor                 string `toml:"border"`
	TitleColor                  string `toml:"title"`
	GraphicsColor               string `toml:"graphics"`
	PrimaryTextColor            string `toml:"primary_text"`
	SecondaryTextColor          string `toml:"secondary_text"`
	TertiaryTextColor           string `toml:"tertiary_text"`
	InverseTextColor            string `toml:"inverse_text"`
	ContrastSecondaryTextColor  string `toml:"contrast_secondary_text"`
}

type account struct {
	Name     string `toml:"name"`
	Server   string `toml:"server"`
	TokenCmd string `toml:"token_eval"`
	DB       string `toml:"db_file"`
}

type config struct {
	DefaultAcct string `toml:"default_account"`
	Timeout     string `toml:"timeout"`

	Log struct {
		Verbose bool `toml:"verbose"`
		Frames  bool `toml:"frames"`
	} `toml:"log"`

	UI struct {
		Theme string `toml:"theme"`
		Width int    `toml:"width"`
	} `toml:"ui"`

	Poll struct {
		Conversation string `toml:"conversation"`
		Inbox        string `toml:"inbox"`
		Bell         string `toml:"bell"`
	} `toml:"poll"`

	Account []account `toml:"account"`
	Theme   []theme   `toml:"theme"`
}

// configFile attempts to open the config file for reading.
// If a file is provided, only that file is checked, otherwise it attempts to
// open the following (falling back if the file does not exist or cannot be
// read):
//
// ./comunichat.toml, $XDG_CONFIG_HOME/comunichat/config.toml,
// $HOME/.config/comunichat/config.toml, /etc/comunichat/config.toml
func configFile(f string) (*os.File, string, error) {
	if f != "" {
		cfgFile, err := os.Open(f)
		return cfgFile, f, err
	}

	fPath := filepath.Join(".", appName+".toml")
	if cfgFile, err := os.Open(fPath); err == nil {
		return cfgFile, fPath, err
	}

	cfgDir := os.Getenv("XDG_CONFIG_HOME")
	if cfgDir != "" {
		fPath = filepath.Join(cfgDir, appName, "config.toml")
		if cfgFile, err := os.Open(fPath); err == nil {
			return cfgFile, fPath, nil
		}
	}

	u, err := user.Current()
	if err != nil || u.HomeDir == "" {
		fPath = filepath.Join("/etc", appName, "config.toml")
		cfgFile, err := os.Open(fPath)
		return cfgFile, fPath, err
	}

	fPath = filepath.Join(u.HomeDir, ".config", appName, "config.toml")
	cfgFile, err := os.Open(fPath)
	return cfgFile, fPath, err
}

// printConfig writes a default config file to the provided writer.
func printConfig(w io.Writer) error {
	cfg := config{
		DefaultAcct: "me",
		Timeout:     "30s",
		Account: []account{{
			Name:     "me",
			Server:   "https://api.comunidad.example",
			TokenCmd: "pass show comunidad/token",
		}},
	}
	cfg.Poll.Conversation = "5s"
	cfg.Poll.Inbox = "30s"
	cfg.Poll.Bell = "30s"
	return toml.NewEncoder(w).Encode(cfg)
}

// getColor looks up a tcell color by name or hex string.
func getColor(name string) tcell.Color {
	if name == "" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(name)
}
