package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/danmuck/kbinxml/charset"
	"github.com/danmuck/kbinxml/kbin"
)

// Profile is the on-disk form of the binary writer options.
type Profile struct {
	Compression string `toml:"compression"`
	Encoding    string `toml:"encoding"`
}

func DefaultProfile() Profile {
	return Profile{Compression: "compressed", Encoding: "SHIFT_JIS"}
}

// LoadProfile reads a TOML profile; keys left out keep their defaults.
func LoadProfile(path string) (Profile, error) {
	var raw Profile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Profile{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Profile{}, fmt.Errorf("config parse failed (%s): unknown key %s", path, undecoded[0])
	}

	p := DefaultProfile()
	if meta.IsDefined("compression") {
		p.Compression = strings.TrimSpace(raw.Compression)
	}
	if meta.IsDefined("encoding") {
		p.Encoding = strings.TrimSpace(raw.Encoding)
	}
	if err := ValidateProfile(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func ValidateProfile(p Profile) error {
	if _, err := p.Options(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return nil
}

// Options converts the profile into writer options.
func (p Profile) Options() (kbin.Options, error) {
	compression, err := kbin.ParseCompression(p.Compression)
	if err != nil {
		return kbin.Options{}, err
	}
	encoding, err := charset.FromLabel(p.Encoding)
	if err != nil {
		return kbin.Options{}, err
	}
	return kbin.Options{Compression: compression, Encoding: encoding}, nil
}

// FromOptions renders writer options as a profile.
func FromOptions(opts kbin.Options) Profile {
	return Profile{Compression: opts.Compression.String(), Encoding: opts.Encoding.Name()}
}

// WriteProfile writes p as TOML, refusing to replace an existing file
// unless overwrite is set.
func WriteProfile(path string, p Profile, overwrite bool) error {
	if err := ValidateProfile(p); err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	data, err := gotoml.Marshal(p)
	if err != nil {
		return fmt.Errorf("config render failed (%s): %w", path, err)
	}
	return os.WriteFile(path, data, 0o600)
}
