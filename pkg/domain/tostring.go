package domain

// String renders the test as "<marker> <expanded name>".
func (t *Test) String() string {
	return t.Result.Marker() + " " + t.ExpandedName
}

// String renders the block as "<marker> <expanded name>".
func (b *Block) String() string {
	return b.Result.Marker() + " " + b.ExpandedName
}

// String renders the container as "<marker> <name>".
func (c *Container) String() string {
	return c.Result.Marker() + " " + c.Name()
}

// String renders the run as "<marker> Pester".
func (r *Run) String() string {
	return r.Result.Marker() + " Pester"
}
