package bus

// Link is the serial link to the gate array driving the host bus.
//
// Send shifts a command word out and returns the word shifted in at the same
// time, which is the response to the previous command. Once the host bus
// cycle completes, Ready reports true and Data holds the byte read.
type Link interface {
	Send(cmd uint32) uint32
	Ready() bool
	Data() uint8
}
