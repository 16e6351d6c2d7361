package runtimectx

// Context is the explicit stand-in for the original runtime's per-thread
// 128-byte exception buffer (EXCEPTION_BUF_LEN) and per-thread feature/
// config globals. One Context is constructed per Decode/Validate/Instantiate
// call chain and is not safe for concurrent reuse across module loads
// (spec.md §5, §9).
type Context struct {
	Features Features
	Config   Config

	err error
}

// NewContext builds a Context with the given features and config.
func NewContext(features Features, config Config) *Context {
	return &Context{Features: features, Config: config}
}

// Fail records err as the context's failure if none has been recorded yet.
// Subsequent calls are no-ops, mirroring the original buffer's
// first-occurrence-wins discipline.
func (c *Context) Fail(err error) {
	if err == nil || c.err != nil {
		return
	}
	c.err = err
}

// Failed reports whether Fail has recorded an error.
func (c *Context) Failed() bool {
	return c.err != nil
}

// FirstError returns the first error recorded via Fail, or nil.
func (c *Context) FirstError() error {
	return c.err
}
