package snapshot

import (
	"encoding/binary"
	"math"

	"github.com/tormol/rtreesync/idgen"
)

// encodeId appends a canonical, collision-free encoding of id to buf.
// User and Generated ids are tagged so they can never encode the same way.
func encodeId(buf []byte, id idgen.Id) []byte {
	if id.IsGenerated() {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	s := id.String()
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

// encodeKey appends a canonical encoding of k to buf.
func encodeKey(buf []byte, k Key) []byte {
	buf = append(buf, byte(k.Kind))
	if k.Kind == KeyNode {
		buf = encodeId(buf, k.Node)
	}
	return buf
}

func encodeFloat(buf []byte, f float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	return append(buf, b[:]...)
}

// encodeValue appends a canonical encoding of v to buf.
func encodeValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KeyRoot:
		return encodeId(buf, v.Root)
	case KeyTicket:
		var b [16]byte
		binary.BigEndian.PutUint64(b[0:8], v.Ticket.S0())
		binary.BigEndian.PutUint64(b[8:16], v.Ticket.S1())
		return append(buf, b[:]...)
	default:
		n := v.Node
		buf = append(buf, byte(n.Shape))
		if n.HasParent {
			buf = append(buf, 1)
			buf = encodeId(buf, n.Parent)
		} else {
			buf = append(buf, 0)
		}
		var countBuf [8]byte
		binary.BigEndian.PutUint64(countBuf[:], uint64(len(n.Children)))
		buf = append(buf, countBuf[:]...)
		for _, c := range n.Children {
			buf = encodeId(buf, c)
		}
		for i := 0; i < n.MBB.Dim(); i++ {
			r := n.MBB.Range(i)
			buf = encodeFloat(buf, r.Min)
			buf = encodeFloat(buf, r.Max)
		}
		return buf
	}
}
