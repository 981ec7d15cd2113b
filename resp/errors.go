package resp

// Error types for the wire codec. Server error replies keep their
// original code and message so the caller sees exactly what the store
// reported; parse errors indicate the connection state is no longer
// trustworthy.

// ServerError is an error reply ("-<CODE> <message>") sent by the
// store. The protocol stream stays in sync after one, so the
// connection remains usable.
type ServerError struct {
	Code    string // leading word of the reply, e.g. "ERR", "MOVED", "WRONGTYPE"
	Message string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + " " + e.Message
}

// ShouldCloseConnection returns false - the reply stream is still aligned.
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// ParseError is a client-side decoding failure: the bytes on the wire
// did not form a valid reply. The reader's position is undefined
// afterwards, so the connection must be closed.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "resp: " + e.Message + ": " + e.Err.Error()
	}
	return "resp: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the stream position is lost.
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}
