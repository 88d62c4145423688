//go:build !darwin

package login

func Supported() bool  { return false }
func Enabled() bool    { return false }
func Enable() error    { return ErrUnsupported }
func Disable() error   { return nil }
