package session

import (
	"github.com/pion/rtp"
)

type rtpHeader struct {
	sequenceNumber uint16
	payloadType    uint8
}

func parseRTPHeader(raw []byte) (rtpHeader, []byte, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(raw); err != nil {
		return rtpHeader{}, nil, err
	}
	return rtpHeader{
		sequenceNumber: pkt.SequenceNumber,
		payloadType:    pkt.PayloadType,
	}, pkt.Payload, nil
}
