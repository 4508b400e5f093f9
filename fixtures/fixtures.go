// Package fixtures provides canned response documents that stand in for real API responses.
package fixtures

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
)

//go:embed data/*.json
var embedded embed.FS

var (
	// ErrFixtureNotFound means there is no fixture with the requested name.
	ErrFixtureNotFound = errors.New("fixture not found")

	// ErrMalformedFixture means the fixture exists but is not valid JSON.
	ErrMalformedFixture = errors.New("fixture is not valid JSON")
)

// Fixture is an immutable JSON document.
type Fixture struct {
	name string
	data []byte
}

func (f Fixture) Name() string {
	return f.name
}

// Bytes returns a copy of the document exactly as it was stored.
func (f Fixture) Bytes() []byte {
	return append([]byte(nil), f.data...)
}

// Decode unmarshals the document into target.
func (f Fixture) Decode(target interface{}) error {
	return json.Unmarshal(f.data, target)
}

// Store loads fixtures by name from a file system and keeps each one for the life of the
// process. It is safe for concurrent use.
type Store struct {
	source fs.FS
	loaded map[string]Fixture
	lock   sync.Mutex
}

// NewStore returns a Store that reads "<name>.json" files from the root of source.
func NewStore(source fs.FS) *Store {
	return &Store{source: source, loaded: make(map[string]Fixture)}
}

// Embedded returns a Store holding the fixtures that are compiled into the program.
func Embedded() *Store {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err) // the embedded directory is fixed at build time
	}
	return NewStore(sub)
}

// Dir returns a Store that reads fixtures from a directory on disk.
func Dir(dir string) *Store {
	return NewStore(os.DirFS(dir))
}

// Load returns the named fixture. A missing or malformed fixture is an error; the caller
// should treat it as fatal.
func (s *Store) Load(name string) (Fixture, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if f, ok := s.loaded[name]; ok {
		return f, nil
	}
	data, err := fs.ReadFile(s.source, path.Clean(name)+".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fixture{}, fmt.Errorf("%w: %q", ErrFixtureNotFound, name)
		}
		return Fixture{}, fmt.Errorf("reading fixture %q: %w", name, err)
	}
	if !json.Valid(data) {
		return Fixture{}, fmt.Errorf("%w: %q", ErrMalformedFixture, name)
	}
	f := Fixture{name: name, data: data}
	s.loaded[name] = f
	return f, nil
}
