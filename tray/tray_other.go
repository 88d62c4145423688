//go:build !darwin && !windows

package tray

func Init() <-chan struct{}  { return quitCh }
func updateRecording(bool)    {}
func updateBusy(bool)         {}
func updateOverlay(bool)      {}
func updateCopy(bool)         {}
func updateTooltip(string)    {}
