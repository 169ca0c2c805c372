package schema

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is the encoding assumed for scripts when none is given.
const DefaultEncoding = "utf-8"

// LoadScript reads the script at path and decodes it from the named IANA encoding.
// An empty encoding means UTF-8. A leading byte order mark is removed.
func LoadScript(path, encodingName string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &SourceUnavailableError{Path: path, Err: err}
	}
	return decodeScript(path, raw, encodingName)
}

// LoadScriptFS is LoadScript for a file in fsys.
func LoadScriptFS(fsys fs.FS, name, encodingName string) (string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", &SourceUnavailableError{Path: name, Err: err}
	}
	return decodeScript(name, raw, encodingName)
}

func decodeScript(path string, raw []byte, encodingName string) (string, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return "", &SourceUnavailableError{Path: path, Err: err}
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), raw)
	if err != nil {
		return "", &SourceUnavailableError{Path: path, Err: fmt.Errorf("decode as %s: %w", encodingName, err)}
	}

	script := string(decoded)
	if strings.TrimSpace(script) == "" {
		return "", &SourceUnavailableError{Path: path, Err: ErrEmptyScript}
	}
	return script, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, DefaultEncoding) || strings.EqualFold(name, "utf8") {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}
