package catalog

import "strconv"

// DefaultColor tags notifications for networks without their own colour.
const DefaultColor = 0x3498db

// Network is a USDT payout network with the operator address that receives
// mining fees on it.
type Network struct {
	Name           string `json:"name"`
	Color          int    `json:"color"`
	PaymentAddress string `json:"paymentAddress"`
}

var networks = []Network{
	{Name: "USDT/TRC20", Color: 0x00ff00, PaymentAddress: "TA5T9Wp1Jm76WrrLfsAwgsKJ6iz2HxNVXL"},
	{Name: "USDT/ERC20", Color: 0xffa500, PaymentAddress: "0xBCAA1B7475F38b080c8e44Cb042ccE156160F03c"},
	{Name: "USDT/Polygon", Color: 0x800080, PaymentAddress: "0xBCAA1B7475F38b080c8e44Cb042ccE156160F03c"},
	{Name: "USDT/SOL", Color: 0x0000ff, PaymentAddress: "Dagr4r1CS7QnCXv6oJT8j8a6Ts7BhuwRVt2ZaMVQPwc4"},
	{Name: "USDT/BEP20", Color: 0xffff00, PaymentAddress: "0x41dfb424f193886f741c8b7a7c065f63ad95631c"},
}

func Networks() []Network {
	return append([]Network(nil), networks...)
}

func NetworkByName(name string) (Network, bool) {
	for _, n := range networks {
		if n.Name == name {
			return n, true
		}
	}
	return Network{}, false
}

// ColorFor returns the notification colour of a network.
func ColorFor(name string) int {
	if n, ok := NetworkByName(name); ok {
		return n.Color
	}
	return DefaultColor
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
