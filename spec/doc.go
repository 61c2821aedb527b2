// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package spec holds the wire-level constants of the PILS register
// protocol: the type code catalog, the status word and parameter control
// word codecs, and value encodings.
//
// Nothing in this package performs I/O.
package spec
