package resp

import (
	"io"
	"strconv"
)

// WriteCommand encodes a command as an array of bulk strings, the only
// request framing the protocol accepts, and writes it to w. args[0] is
// the command name.
//
// Callers batching several commands should pass a buffered writer and
// flush once after the last command.
func WriteCommand(w io.Writer, args ...[]byte) error {
	buf := make([]byte, 0, commandSize(args))
	buf = appendCommand(buf, args)
	_, err := w.Write(buf)
	return err
}

func commandSize(args [][]byte) int {
	// "*N\r\n" plus "$len\r\n<arg>\r\n" per argument; the length
	// digits are over-estimated at 12 bytes.
	size := 16
	for _, arg := range args {
		size += len(arg) + 16
	}
	return size
}

func appendCommand(buf []byte, args [][]byte) []byte {
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, '\r', '\n')
	for _, arg := range args {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(arg)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, arg...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}
