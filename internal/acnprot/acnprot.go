// Package acnprot provides protocol identifiers used in ACN root layer vectors.
package acnprot

const (
	ProtocolSDT           = 0x00000001
	ProtocolDMP           = 0x00000002
	ProtocolDraftE131Data = 0x00000003
	ProtocolE131Data      = 0x00000004
	ProtocolRPT           = 0x00000005
	ProtocolE131Extended  = 0x00000008
	ProtocolBroker        = 0x00000009
	ProtocolLLRP          = 0x0000000A
	ProtocolEPT           = 0x0000000B
)

const (
	// SACNPort is the UDP port for sACN (E1.31) traffic.
	SACNPort = 5568

	// RDMnetPort is the default TCP port for RDMnet brokers.
	RDMnetPort = 5569

	// LLRPPort is the UDP port for LLRP traffic.
	LLRPPort = 5569
)

// Name returns a short human-readable name for a root layer vector,
// or the empty string if the vector is not known.
func Name(vector uint32) string {
	switch vector {
	case ProtocolSDT:
		return "SDT"
	case ProtocolDMP:
		return "DMP"
	case ProtocolDraftE131Data:
		return "E1.31 draft"
	case ProtocolE131Data:
		return "E1.31 data"
	case ProtocolRPT:
		return "RPT"
	case ProtocolE131Extended:
		return "E1.31 extended"
	case ProtocolBroker:
		return "Broker"
	case ProtocolLLRP:
		return "LLRP"
	case ProtocolEPT:
		return "EPT"
	default:
		return ""
	}
}
