package can

import "go.bug.st/serial/enumerator"

// SerialPort describes a serial port on the host.
type SerialPort struct {
	PortName    string
	Description string
	IsUSB       bool
	VID, PID    string
}

// AvailablePorts returns all available serial ports on the current host.
func AvailablePorts() ([]SerialPort, error) {
	list, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	ports := make([]SerialPort, len(list))
	for i, p := range list {
		ports[i] = SerialPort{
			PortName:    p.Name,
			Description: p.Product,
			IsUSB:       p.IsUSB,
			VID:         p.VID,
			PID:         p.PID,
		}
	}
	return ports, nil
}
