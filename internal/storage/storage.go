package storage

import (
	"fmt"
	"io/fs"
	"os"
)

// Store is a flat directory of named files.
type Store interface {
	RootAbs() string
	Resolve(name string) (string, error)
	Stat(name string) (fs.FileInfo, error)
	ReadDir() ([]fs.DirEntry, error)
	Remove(name string) error
	OpenForRead(name string) (*os.File, error)
	OpenForWrite(name string) (*os.File, error)
}

type Storage struct {
	validator *PathValidator
}

var _ Store = (*Storage)(nil)

func New(root string) (*Storage, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Storage{validator: validator}, nil
}

func (s *Storage) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *Storage) Resolve(name string) (string, error) {
	return s.validator.ResolveName(name)
}

func (s *Storage) Stat(name string) (fs.FileInfo, error) {
	resolved, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	return os.Stat(resolved)
}

func (s *Storage) ReadDir() ([]fs.DirEntry, error) {
	return os.ReadDir(s.validator.RootAbs())
}

func (s *Storage) Remove(name string) error {
	resolved, err := s.Resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("remove %q: %w", name, err)
	}

	return nil
}

func (s *Storage) OpenForRead(name string) (*os.File, error) {
	resolved, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	return os.Open(resolved)
}

func (s *Storage) OpenForWrite(name string) (*os.File, error) {
	resolved, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	return os.OpenFile(resolved, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}
