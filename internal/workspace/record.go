package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Install directory layout:
//
//	installDir/
//	  .recipe.json    # build record
//	  include/
//	  lib/
//	    pkgconfig/
const RecordFile = ".recipe.json"

// Record describes a successful build.
type Record struct {
	Recipe      string            `json:"recipe"`
	Version     string            `json:"version"`
	Origin      string            `json:"origin"`
	Commit      string            `json:"commit,omitempty"`
	Platform    string            `json:"platform"`
	Options     string            `json:"options"`
	Patch       string            `json:"patch,omitempty"`
	Definitions map[string]string `json:"definitions"`
	Artifacts   []string          `json:"artifacts"`
	BuildTime   time.Time         `json:"build_time"`
}

// SaveRecord writes rec into installDir.
func SaveRecord(installDir string, rec *Record) error {
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(installDir, RecordFile), data, 0o644)
}

// LoadRecord reads the record of the build installed in installDir.
func LoadRecord(installDir string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(installDir, RecordFile))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
