// Loading, watching and saving of the shared JSON configuration file
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"framelink/internal/global"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

func newViper(path string) (v *viper.Viper) {
	v = viper.New()
	base := filepath.Base(path)
	v.SetConfigName(strings.TrimSuffix(base, filepath.Ext(base)))
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Dir(path))

	setDefaults(v)

	v.SetEnvPrefix(global.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return
}

// Reads file and environment on top of defaults. A missing file is not an error.
func Load(path string) (file File, found bool, err error) {
	v := newViper(path)
	found, err = read(v)
	if err != nil {
		return
	}
	file, err = decode(v)
	return
}

func read(v *viper.Viper) (found bool, err error) {
	err = v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			err = nil
			return
		}
		err = fmt.Errorf("failed reading config file: %w", err)
		return
	}
	found = true
	return
}

func decode(v *viper.Viper) (file File, err error) {
	err = v.Unmarshal(&file)
	if err != nil {
		err = fmt.Errorf("failed decoding config: %w", err)
		return
	}
	err = file.Validate()
	return
}

// Calls onChange with the re-read file each time it changes on disk.
// Invalid edits are reported through onError and otherwise ignored.
func Watch(path string, onChange func(File), onError func(error)) (err error) {
	v := newViper(path)
	found, err := read(v)
	if err != nil {
		return
	}
	if !found {
		err = fmt.Errorf("config file %s does not exist", path)
		return
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		file, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(file)
	})
	v.WatchConfig()
	return
}

// Writes the file as indented JSON, replacing atomically
func Save(path string, file File) (err error) {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		err = fmt.Errorf("failed encoding config: %w", err)
		return
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	err = os.WriteFile(tmpPath, data, 0644)
	if err != nil {
		err = fmt.Errorf("failed writing config: %w", err)
		return
	}
	err = os.Rename(tmpPath, path)
	if err != nil {
		os.Remove(tmpPath)
		err = fmt.Errorf("failed replacing config: %w", err)
	}
	return
}
