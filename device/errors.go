// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"errors"
	"fmt"
)

var (
	// ErrSpec marks a mismatch between the PLC firmware and this client:
	// unknown type codes, inconsistent layouts or scanner metadata.
	// There is no degraded mode for such devices.
	ErrSpec = errors.New("pils: device description error")

	// ErrNotApplicable is returned for operations the device shape does
	// not support.
	ErrNotApplicable = errors.New("pils: operation not applicable")

	// ErrReadOnly is returned for target access on devices without target.
	ErrReadOnly = fmt.Errorf("%w: read-only device", ErrNotApplicable)

	// ErrBadValue is returned for arguments that do not fit the device.
	ErrBadValue = errors.New("pils: bad value")
)

func specError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSpec, fmt.Sprintf(format, args...))
}

func notApplicable(d *Device, op string) error {
	return fmt.Errorf("%w: %s on %s (%v)", ErrNotApplicable, op, d.Name, d.Layout.Class)
}
