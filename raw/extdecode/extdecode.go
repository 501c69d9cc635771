// Package extdecode implements a raw.Decoder that shells out to an
// external binary rather than linking any particular GRIB/NetCDF decode
// library into this process. Grounded on ios/dutils_linux.go's
// exec.Command + JSON-stdout convention (there: `lsblk -Jt` parsed via
// jsoniter; here: `<bin> <path>` parsed the same way).
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package extdecode

import (
	"os/exec"

	jsoniter "github.com/json-iterator/go"

	"github.com/nwp-consumer/core/ncerr"
	"github.com/nwp-consumer/core/raw"
)

// New returns a raw.Decoder that runs `<bin> <path>` and expects a JSON
// array of raw.DecodedField on stdout. bin is typically resolved from an
// operator-supplied env var (e.g. DECODER_BIN) rather than hardcoded,
// since the concrete decode binary is provider- and format-specific.
func New(bin string) raw.Decoder {
	return func(path string) ([]raw.DecodedField, error) {
		out, err := exec.Command(bin, path).Output()
		if err != nil {
			return nil, &ncerr.DecodeError{Path: path, Cause: err}
		}
		var fields []raw.DecodedField
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(out, &fields); err != nil {
			return nil, &ncerr.DecodeError{Path: path, Cause: err}
		}
		return fields, nil
	}
}
