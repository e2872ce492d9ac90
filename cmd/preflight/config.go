package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/preflightvcs/preflight/pkg/vcs"
)

// fileConfig is the on-disk configuration, looked up at
// .preflight.toml in the repository root unless --config points
// elsewhere. Every field is optional.
type fileConfig struct {
	Remote  string     `toml:"remote"`
	Timeout string     `toml:"timeout"`
	Cache   string     `toml:"cache_dir"`
	Cap     int        `toml:"enumeration_cap"`
	Auth    authConfig `toml:"auth"`
}

type authConfig struct {
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	Token         string `toml:"token"`
	SSHKey        string `toml:"ssh_key"`
	SSHPassphrase string `toml:"ssh_passphrase"`
}

// loadConfig reads path, or the default location under root when path is
// empty. A missing file is not an error.
func loadConfig(root, path string) (*fileConfig, error) {
	explicit := path != ""
	if path == "" {
		path = filepath.Join(root, ".preflight.toml")
	}
	cfg := &fileConfig{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// credentials merges the config's auth block with the conventional
// environment variables, environment winning.
func (c *fileConfig) credentials() vcs.Credentials {
	creds := vcs.Credentials{
		Username:      c.Auth.Username,
		Password:      c.Auth.Password,
		Token:         c.Auth.Token,
		SSHKeyPath:    c.Auth.SSHKey,
		SSHPassphrase: c.Auth.SSHPassphrase,
	}
	if v := os.Getenv("PREFLIGHT_TOKEN"); v != "" {
		creds.Token = v
	}
	if v := os.Getenv("PREFLIGHT_USERNAME"); v != "" {
		creds.Username = v
	}
	if v := os.Getenv("PREFLIGHT_PASSWORD"); v != "" {
		creds.Password = v
	}
	if v := os.Getenv("PREFLIGHT_SSH_KEY"); v != "" {
		creds.SSHKeyPath = v
	}
	return creds
}
