package payment

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRCodePNG renders uri as a scannable QR code image of size×size pixels.
func QRCodePNG(uri string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
