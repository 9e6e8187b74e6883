// Package storage persists the few bytes the link keeps across power
// cycles: the bound pipe address and the failsafe table.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hoplink/protocol"
)

var (
	ErrEmpty   = errors.New("storage: nothing saved")
	ErrCorrupt = errors.New("storage: record checksum mismatch")
)

// Store is the load/save pair backing one persisted record. The layout
// on the medium is the store's business; callers only see the bytes.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// MemStore keeps the record in RAM and counts writes
type MemStore struct {
	data  []byte
	Saves int
}

func (m *MemStore) Load() ([]byte, error) {
	if m.data == nil {
		return nil, ErrEmpty
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemStore) Save(data []byte) error {
	m.data = append([]byte(nil), data...)
	m.Saves++
	return nil
}

// FileStore keeps one record per file with a CRC16 trailer. Saves go
// through a temp file and rename so a power cut never leaves half a record.
type FileStore struct {
	Path string
}

func (f FileStore) Load() ([]byte, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	if len(raw) < 2 {
		return nil, ErrCorrupt
	}
	data := raw[:len(raw)-2]
	crc := uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1])
	if crc != protocol.CRC16(data) {
		return nil, ErrCorrupt
	}
	return data, nil
}

func (f FileStore) Save(data []byte) error {
	crc := protocol.CRC16(data)
	raw := make([]byte, 0, len(data)+2)
	raw = append(raw, data...)
	raw = append(raw, byte(crc>>8), byte(crc))

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	return nil
}

// LoadPipe reads a persisted 5-byte pipe address
func LoadPipe(s Store) (protocol.PipeAddress, error) {
	data, err := s.Load()
	if err != nil {
		return 0, err
	}
	return protocol.ParsePipe(data)
}

func SavePipe(s Store, p protocol.PipeAddress) error {
	b := p.Bytes()
	return s.Save(b[:])
}

// LoadFailsafe reads the 32-byte failsafe table
func LoadFailsafe(s Store) (protocol.FailsafeTable, error) {
	var t protocol.FailsafeTable
	data, err := s.Load()
	if err != nil {
		return t, err
	}
	err = t.UnmarshalBinary(data)
	return t, err
}

func SaveFailsafe(s Store, t protocol.FailsafeTable) error {
	data, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	return s.Save(data)
}
