package ecosystem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/forcetree/pkg/errors"
)

// Format identifies an ecosystem file encoding.
type Format string

// Supported file formats.
const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	if err := errors.ValidateExtension(path, ".json", ".toml"); err != nil {
		return "", err
	}
	return Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")), nil
}

// Decode reads an ecosystem document in the given format.
// The result is not validated; pass it to [Build].
func Decode(r io.Reader, f Format) (*Data, error) {
	var d Data
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&d); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidEcosystem, err, "decode json")
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&d); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidEcosystem, err, "decode toml")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown ecosystem format %q", f)
	}
	return &d, nil
}

// Encode writes d in the given format.
func Encode(w io.Writer, d *Data, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(d); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown ecosystem format %q", f)
	}
}

// Read decodes and builds an ecosystem in one step.
func Read(r io.Reader, f Format) (*Node, error) {
	d, err := Decode(r, f)
	if err != nil {
		return nil, err
	}
	return Build(d)
}

// ReadFile reads and builds the ecosystem stored at path.
// The format is taken from the file extension.
func ReadFile(path string) (*Node, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return Read(file, f)
}

// WriteFile writes d to path in the format given by its extension.
func WriteFile(d *Data, path string) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	return Encode(file, d, f)
}

// Marshal returns the compact JSON encoding of d.
// The encoding is stable and is used to derive cache keys.
func Marshal(d *Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(d); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// Unmarshal decodes JSON bytes and builds the hierarchy.
func Unmarshal(data []byte) (*Node, error) {
	return Read(bytes.NewReader(data), FormatJSON)
}
