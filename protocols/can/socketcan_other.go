//go:build !linux

package can

import (
	"context"

	"github.com/pkg/errors"
)

// DialSocketCAN is only available on Linux.
func DialSocketCAN(ctx context.Context, iface string, l Logger) (Bus, error) {
	return nil, errors.Errorf("socketcan interface '%s': socketcan requires linux", iface)
}
