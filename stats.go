package slcan

import "fmt"

type Stats struct {
	SentBytes  uint64
	RecvBytes  uint64
	Commands   uint64
	FramesSent uint64
	FramesRecv uint64
	Timeouts   uint64
	Errors     uint64
}

func (st Stats) String() string {
	return fmt.Sprintf("sent: %d recv: %d commands: %d frames tx: %d rx: %d timeouts: %d errors: %d",
		st.SentBytes, st.RecvBytes, st.Commands, st.FramesSent, st.FramesRecv, st.Timeouts, st.Errors)
}
