package importer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

var (
	ErrNotLinked = errors.New("resource is not linked to the source")
	ErrCycle     = errors.New("import cycle")
	ErrEmptyURI  = errors.New("empty source uri")
)

// Diagnostic is a failure that did not abort the import: a skipped list
// item, a reference that could not be resolved or a missing thumbnail.
type Diagnostic struct {
	Source source.Type
	Kind   resource.Kind
	URI    string
	// Key is the attribute of the parent the failed entity belonged to.
	Key string
	Err error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s %s %s (%s): %v", d.Source, d.Kind, d.URI, d.Key, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

type wireDiagnostic struct {
	Source source.Type   `json:"source"`
	Kind   resource.Kind `json:"type"`
	URI    string        `json:"uri"`
	Key    string        `json:"key,omitempty"`
	Error  string        `json:"error"`
}

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	msg := ""
	if d.Err != nil {
		msg = d.Err.Error()
	}
	return json.Marshal(wireDiagnostic{d.Source, d.Kind, d.URI, d.Key, msg})
}

// UnmarshalJSON restores a diagnostic read over the wire. The error keeps
// its message only.
func (d *Diagnostic) UnmarshalJSON(data []byte) error {
	var w wireDiagnostic
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Diagnostic{Source: w.Source, Kind: w.Kind, URI: w.URI, Key: w.Key}
	if w.Error != "" {
		d.Err = errors.New(w.Error)
	}
	return nil
}
