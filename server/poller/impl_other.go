//go:build !linux && !darwin

package poller

import "github.com/Trinoooo/eggie_echo/errs"

func New(maxEvents int) (Poller, error) {
	return nil, errs.NewUnsupportedPlatformErr()
}
