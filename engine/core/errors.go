package core

import (
	"errors"
)

var (
	// The swapchain no longer matches the surface and must be rebuilt
	// before another image can be acquired.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	// Presentation still works but the swapchain should be rebuilt on the next frame.
	ErrSwapchainSuboptimal = errors.New("swapchain suboptimal")
	ErrWindowClosed        = errors.New("window closed")
	ErrUnknown             = errors.New("unknown")
)

// IsSwapchainStale reports whether err asks the caller to recreate the swapchain.
func IsSwapchainStale(err error) bool {
	return errors.Is(err, ErrSwapchainOutOfDate) || errors.Is(err, ErrSwapchainSuboptimal)
}
