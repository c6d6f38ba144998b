package slcan

import "context"

// LCDIdentifier is the frame the dashboard display listens to for its
// contrast, backlight colour and intensity.
const LCDIdentifier = 0x7DD

func LCDFrame(contrast, red, green, blue, intensity uint8) CANFrame {
	return NewFrame(LCDIdentifier, []byte{contrast, red, green, blue, intensity})
}

// SendFrame is a shortcut to transmit a standard 11bit frame
func (s *Session) SendFrame(ctx context.Context, identifier uint32, data []byte) error {
	return s.Transmit(ctx, NewFrame(identifier, data))
}

func (s *Session) SetLCD(ctx context.Context, contrast, red, green, blue, intensity uint8) error {
	return s.Transmit(ctx, LCDFrame(contrast, red, green, blue, intensity))
}
