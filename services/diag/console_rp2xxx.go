// services/diag/console_rp2xxx.go
//go:build rp2040 || rp2350

package diag

import (
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

const consoleBaud = 115200

// Console configures UART0 on the board-default pins (GP0/GP1).
func Console() io.Writer {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: consoleBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	return u
}
