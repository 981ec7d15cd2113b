package kvgate

import "strings"

// Command is a single request to the store: a command name plus its
// ordered arguments. Commands are immutable once built; the client only
// ever reads them.
type Command struct {
	args [][]byte
}

// NewCommand builds a command from a name and string arguments.
// The name is kept exactly as given; matching against it is always
// case-insensitive.
func NewCommand(name string, args ...string) *Command {
	all := make([][]byte, 0, len(args)+1)
	all = append(all, []byte(name))
	for _, arg := range args {
		all = append(all, []byte(arg))
	}
	return &Command{args: all}
}

// NewCommandArgs builds a command from raw byte arguments, args[0]
// being the command name. Useful when values are binary.
func NewCommandArgs(args ...[]byte) *Command {
	return &Command{args: args}
}

// Name returns the command name, upper-cased.
func (c *Command) Name() string {
	if len(c.args) == 0 {
		return ""
	}
	return strings.ToUpper(string(c.args[0]))
}

// Args returns the full argument list including the command name.
func (c *Command) Args() [][]byte {
	return c.args
}

// key returns the argument a slot can be derived from, or false when
// the command addresses no particular key.
func (c *Command) key() ([]byte, bool) {
	if len(c.args) < 2 {
		return nil, false
	}
	name := c.Name()
	if _, keyless := keylessCommands[name]; keyless {
		return nil, false
	}
	if name == "XREAD" || name == "XREADGROUP" {
		return c.streamsKey()
	}
	return c.args[1], true
}

// streamsKey returns the first key of a stream read's STREAMS block.
// Everything before the STREAMS token is options, not keys.
func (c *Command) streamsKey() ([]byte, bool) {
	for i := 1; i < len(c.args)-1; i++ {
		if strings.EqualFold(string(c.args[i]), "STREAMS") {
			return c.args[i+1], true
		}
	}
	return nil, false
}

// keylessCommands name commands whose first argument is not a key, so
// no deterministic destination can be derived from them.
var keylessCommands = map[string]struct{}{
	"AUTH":      {},
	"CLIENT":    {},
	"CLUSTER":   {},
	"CONFIG":    {},
	"DBSIZE":    {},
	"ECHO":      {},
	"FLUSHALL":  {},
	"FLUSHDB":   {},
	"HELLO":     {},
	"INFO":      {},
	"PING":      {},
	"READONLY":  {},
	"READWRITE": {},
	"RESET":     {},
	"SCAN":      {},
	"SCRIPT":    {},
	"SELECT":    {},
	"SHUTDOWN":  {},
	"SLOWLOG":   {},
	"SUBSCRIBE": {},
	"TIME":      {},
	"WAIT":      {},
}

// Pipeline is an ordered batch of commands sent together, yielding one
// reply per command. The reply window (offset/count) passed to
// SendPipeline marks which replies are genuine results; entries outside
// it are protocol bookkeeping such as transaction markers.
type Pipeline struct {
	cmds []*Command
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Add appends commands in order.
func (p *Pipeline) Add(cmds ...*Command) *Pipeline {
	p.cmds = append(p.cmds, cmds...)
	return p
}

// Len returns the number of commands in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.cmds)
}

// Commands returns the ordered command list.
func (p *Pipeline) Commands() []*Command {
	return p.cmds
}
