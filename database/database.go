// Package database stores Mind-state as flat files: <rootDir>/<flatFileDir>/<mind>/<name>.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	dircopy "github.com/otiai10/copy"
	"github.com/sasha-s/go-deadlock"

	"mossgarden/mossgarden"
)

var mutex = &deadlock.Mutex{}

func dir(mind string) string {
	conf := mossgarden.MakeOrGetConfig()
	return filepath.Join(conf.GetString("rootDir"), conf.GetString("flatFileDir"), mind)
}

// Open returns the file holding the named state of a Mind, and false if there isn't one.
func Open(mind, name string) (*os.File, bool) {
	mutex.Lock()
	defer mutex.Unlock()
	f, err := os.Open(filepath.Join(dir(mind), name))
	if err != nil {
		if !os.IsNotExist(err) {
			mossgarden.LogCLI(err.Error(), 2)
		}
		return nil, false
	}
	return f, true
}

// Write replaces the named state of a Mind.
func Write(mind, name string, b []byte) error {
	mutex.Lock()
	defer mutex.Unlock()
	if len(mossgarden.MakeOrGetConfig().GetString("rootDir")) == 0 {
		return fmt.Errorf("rootDir is not set, refusing to write %s/%s", mind, name)
	}
	if err := os.MkdirAll(dir(mind), 0755); err != nil {
		return err
	}
	tmp := filepath.Join(dir(mind), name+".tmp")
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir(mind), name))
}

// Backup copies the whole data directory into <rootDir>/backups/<unix time> and returns the path.
func Backup() (string, error) {
	mutex.Lock()
	defer mutex.Unlock()
	conf := mossgarden.MakeOrGetConfig()
	src := filepath.Join(conf.GetString("rootDir"), conf.GetString("flatFileDir"))
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dest := filepath.Join(conf.GetString("rootDir"), "backups", fmt.Sprint(time.Now().UnixNano()))
	if err := dircopy.Copy(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}
