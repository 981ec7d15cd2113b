package resp

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"
)

var crlfBytes = []byte("\r\n")

// Reader decodes replies from a RESP byte stream. It understands both
// RESP2 and RESP3 framing, so the same reader works regardless of which
// protocol version the connection negotiated.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader decoding from r.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// ReadValue reads one complete reply.
//
// Error replies ("-...") are returned as a *ServerError, not as a
// Value: the store answered, but with a failure. I/O problems and
// malformed framing are returned as the underlying error or a
// *ParseError respectively.
func (r *Reader) ReadValue() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	if len(line) == 0 {
		return Value{}, &ParseError{Message: "empty reply line"}
	}

	marker, rest := line[0], line[1:]
	switch marker {
	case '+':
		return NewStatus(string(rest)), nil

	case '-':
		return Value{}, parseErrorReply(rest)

	case ':':
		n, err := strconv.ParseInt(string(rest), 10, 64)
		if err != nil {
			return Value{}, &ParseError{Message: "invalid integer reply", Err: err}
		}
		return NewInt(n), nil

	case '$':
		return r.readBulk(rest)

	case '=':
		// Verbatim strings carry a 4-byte "txt:"/"mkd:" prefix which
		// callers never want to see.
		v, err := r.readBulk(rest)
		if err != nil || v.IsNil() {
			return v, err
		}
		if len(v.Bulk) >= 4 && v.Bulk[3] == ':' {
			v.Bulk = v.Bulk[4:]
		}
		return v, nil

	case '*', '~':
		// Sets are surfaced as arrays: the client has no set type.
		return r.readArray(rest)

	case '%':
		return r.readMap(rest)

	case '#':
		switch string(rest) {
		case "t":
			return NewBool(true), nil
		case "f":
			return NewBool(false), nil
		}
		return Value{}, &ParseError{Message: "invalid boolean reply " + strconv.Quote(string(rest))}

	case ',':
		f, err := parseDouble(string(rest))
		if err != nil {
			return Value{}, &ParseError{Message: "invalid double reply", Err: err}
		}
		return NewDouble(f), nil

	case '_':
		return Nil, nil
	}

	return Value{}, &ParseError{Message: "unknown reply marker " + strconv.Quote(string(marker))}
}

// readLine reads up to CRLF and returns the line without it.
func (r *Reader) readLine() ([]byte, error) {
	line, err := r.r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(line, crlfBytes) {
		return nil, &ParseError{Message: "reply line not terminated by CRLF"}
	}
	return line[:len(line)-2], nil
}

func (r *Reader) readBulk(lenField []byte) (Value, error) {
	size, err := strconv.Atoi(string(lenField))
	if err != nil {
		return Value{}, &ParseError{Message: "invalid bulk length", Err: err}
	}
	if size < 0 {
		return Nil, nil
	}

	buf := make([]byte, size+2)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return Value{}, err
	}
	if !bytes.Equal(buf[size:], crlfBytes) {
		return Value{}, &ParseError{Message: "bulk string not terminated by CRLF"}
	}
	return NewBulk(buf[:size]), nil
}

func (r *Reader) readArray(lenField []byte) (Value, error) {
	size, err := strconv.Atoi(string(lenField))
	if err != nil {
		return Value{}, &ParseError{Message: "invalid array length", Err: err}
	}
	if size < 0 {
		return Nil, nil
	}

	items := make([]Value, size)
	for i := range items {
		if items[i], err = r.ReadValue(); err != nil {
			return Value{}, err
		}
	}
	return Value{Kind: KindArray, Array: items}, nil
}

func (r *Reader) readMap(lenField []byte) (Value, error) {
	size, err := strconv.Atoi(string(lenField))
	if err != nil {
		return Value{}, &ParseError{Message: "invalid map length", Err: err}
	}
	if size < 0 {
		return Nil, nil
	}

	entries := make([]MapEntry, size)
	for i := range entries {
		if entries[i].Key, err = r.ReadValue(); err != nil {
			return Value{}, err
		}
		if entries[i].Value, err = r.ReadValue(); err != nil {
			return Value{}, err
		}
	}
	return Value{Kind: KindMap, Map: entries}, nil
}

// parseErrorReply splits "-CODE message" into a ServerError. The code
// is the leading all-caps word when present.
func parseErrorReply(line []byte) *ServerError {
	s := string(line)
	code, msg, found := strings.Cut(s, " ")
	if !found || code != strings.ToUpper(code) {
		return &ServerError{Message: s}
	}
	return &ServerError{Code: code, Message: msg}
}

// parseDouble accepts the protocol's spellings for infinities alongside
// regular float syntax.
func parseDouble(s string) (float64, error) {
	switch s {
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
