package report

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Core deterministic encoding: the same report always gives the same bytes,
// so two reports can be compared by digest.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339
	encMode, err = opts.EncMode()
	if err != nil {
		panic("report: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("report: CBOR decoder initialization failed: " + err.Error())
	}
}

type Encoding string

const (
	CBOR Encoding = "cbor"
	YAML Encoding = "yaml"
)

func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case CBOR, YAML:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("unknown report encoding %q", s)
}

func (r *Volume) Encode(w io.Writer, enc Encoding) error {
	switch enc {
	case CBOR:
		return encMode.NewEncoder(w).Encode(r)
	case YAML:
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(r); err != nil {
			return err
		}
		return e.Close()
	}
	return fmt.Errorf("unknown report encoding %q", enc)
}

func (r *Volume) Decode(rd io.Reader, enc Encoding) error {
	switch enc {
	case CBOR:
		return decMode.NewDecoder(rd).Decode(r)
	case YAML:
		return yaml.NewDecoder(rd).Decode(r)
	}
	return fmt.Errorf("unknown report encoding %q", enc)
}
