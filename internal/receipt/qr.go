package receipt

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRCode encodes the registration protocol as a PNG image for the printed receipt.
func QRCode(protocol string) ([]byte, error) {
	if protocol == "" {
		return nil, fmt.Errorf("empty protocol")
	}
	png, err := qrcode.Encode(protocol, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
