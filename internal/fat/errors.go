// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fat

import "errors"

// Sentinel error kinds. Every failure mode the core can produce wraps one
// of these so callers can classify with errors.Is, even after fmt.Errorf's
// %w has added positional context.
var (
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrShortIO           = errors.New("short read or write")
	ErrOutOfRange        = errors.New("request entirely beyond end of device")
	ErrShortBuffer       = errors.New("buffer shorter than a boot sector")
	ErrZeroField         = errors.New("required boot sector field is zero")
	ErrValidationFailed  = errors.New("boot sector failed validation")
	ErrCorruptChain      = errors.New("cluster chain is corrupt")
	ErrOutputExists      = errors.New("output path already exists")
	ErrUserCancelled     = errors.New("user cancelled the operation")
	ErrNoCandidate       = errors.New("no plausible boot sector candidate found")
)

// BadSignatureWarning is not an error: parsing continues after it. Callers
// that care check the Layout.SignatureValid field instead of an error
// return.

// ZeroFieldError names which BPB field was found to be zero.
type ZeroFieldError struct {
	Field string
}

func (e *ZeroFieldError) Error() string {
	return "boot sector field is zero: " + e.Field
}

func (e *ZeroFieldError) Unwrap() error {
	return ErrZeroField
}
