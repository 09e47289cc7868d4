//go:build !unix

package audio

import "os"

var (
	pauseSignal  os.Signal
	resumeSignal os.Signal
)
