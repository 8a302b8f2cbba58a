package command

// Params holds the typed values produced by Parse.
type Params struct {
	Command string
	values  map[string]any
}

// NewParams builds Params from already-typed values, mainly for tests.
func NewParams(command string, values map[string]any) Params {
	if values == nil {
		values = map[string]any{}
	}
	return Params{Command: command, values: values}
}

// Has reports whether name resolved to a value, explicitly or by default.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// String returns a string parameter, or "" when unset.
func (p Params) String(name string) string {
	v, _ := p.values[name].(string)
	return v
}

// Bool returns a boolean parameter, or false when unset.
func (p Params) Bool(name string) bool {
	v, _ := p.values[name].(bool)
	return v
}

// List returns a string-list parameter, or nil when unset.
func (p Params) List(name string) []string {
	v, _ := p.values[name].([]string)
	return v
}

// Map returns a copy of the resolved values.
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}
