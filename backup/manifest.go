package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	manifestFile  = "manifest.json"
	configFile    = "config.json"
	tablesDir     = "database/"
	formatVersion = 1
)

// Manifest: описание архива, по которому проверяется целостность при восстановлении
type Manifest struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Files     map[string]string `json:"files"`
	Tables    map[string]int    `json:"tables"`
}

func newManifest(now time.Time) *Manifest {
	return &Manifest{
		Version:   formatVersion,
		CreatedAt: now.UTC(),
		Files:     make(map[string]string),
		Tables:    make(map[string]int),
	}
}

func checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func (m *Manifest) add(name string, data []byte) {
	m.Files[name] = checksum(data)
}

// verify проверяет файл по контрольной сумме из манифеста
func (m *Manifest) verify(name string, data []byte) error {
	want, ok := m.Files[name]
	if !ok {
		return fmt.Errorf("%s: not listed in manifest", name)
	}
	if got := checksum(data); got != want {
		return fmt.Errorf("%s: checksum mismatch (want %s, got %s)", name, want, got)
	}
	return nil
}

func decodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Version != formatVersion {
		return nil, fmt.Errorf("unsupported backup version %d", m.Version)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("manifest lists no files")
	}
	return &m, nil
}
