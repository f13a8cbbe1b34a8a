package app

// simGadget stands in for the configfs gadget when running the simulator on
// a development machine.
type simGadget struct {
	exposed map[string]bool
}

func newSimGadget() *simGadget {
	return &simGadget{exposed: make(map[string]bool)}
}

func (g *simGadget) AddDrive(name, _ string) error { g.exposed[name] = true; return nil }
func (g *simGadget) RemoveDrive(name string) error { delete(g.exposed, name); return nil }
func (g *simGadget) Exposed(name string) bool      { return g.exposed[name] }
func (g *simGadget) Bind() error                   { return nil }
func (g *simGadget) Unbind() error                 { return nil }
