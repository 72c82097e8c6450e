package runtime

// Mode is the execution path a run is taking.
type Mode string

const (
	// ModeInterpreted is the default fully monitored path.
	ModeInterpreted Mode = "interpreted"

	// ModeOptimized is the cached replay path for trusted identities.
	ModeOptimized Mode = "optimized"

	// ModeFailed marks a context whose run was terminated by a violation.
	ModeFailed Mode = "failed"
)

// Context holds the mutable state of a single run: variable bindings,
// pending output, execution mode, and the identity of the program.
//
// A Context is created fresh per invocation and discarded at the end,
// regardless of outcome. It is never shared or reused across invocations;
// that is what guarantees state isolation between runs.
type Context struct {
	identity string
	mode     Mode
	vars     map[string]int64
	output   []string
}

// NewContext creates a fresh context for one run of the given identity.
func NewContext(identity string, mode Mode) *Context {
	return &Context{
		identity: identity,
		mode:     mode,
		vars:     make(map[string]int64),
	}
}

// Identity returns the code identity of the program being run.
func (c *Context) Identity() string {
	return c.identity
}

// Mode returns the active execution mode.
func (c *Context) Mode() Mode {
	return c.mode
}

// MarkFailed demotes the context's mode after a violation.
func (c *Context) MarkFailed() {
	c.mode = ModeFailed
}

// Get returns the value of a variable and whether it is bound.
func (c *Context) Get(name string) (int64, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Set creates or overwrites a variable binding. Last write wins.
func (c *Context) Set(name string, value int64) {
	c.vars[name] = value
}

// VarCount returns the number of live variable bindings.
func (c *Context) VarCount() int {
	return len(c.vars)
}

// Emit appends one line to the run's output.
func (c *Context) Emit(line string) {
	c.output = append(c.output, line)
}

// Output returns a copy of the ordered output lines emitted so far.
func (c *Context) Output() []string {
	out := make([]string, len(c.output))
	copy(out, c.output)
	return out
}

// Variables returns a copy of the current variable bindings.
// Used both for results and for violation snapshots.
func (c *Context) Variables() map[string]int64 {
	vars := make(map[string]int64, len(c.vars))
	for k, v := range c.vars {
		vars[k] = v
	}
	return vars
}
