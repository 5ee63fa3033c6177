package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	c.When("mailer").Needs("transport").Give(func(c *container.Container) any {
//	    return smtp.New(...)
//	})
type ContextualBuilder struct {
	container *Container
	concrete  string
	needs     string
}

// When starts a contextual binding for the service concrete. While concrete
// is being produced, resolving the needed name uses the given value instead
// of the container-wide binding.
func (c *Container) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{container: c, concrete: concrete}
}

// Needs names the service concrete resolves.
func (b *ContextualBuilder) Needs(name string) *ContextualBuilder {
	b.needs = name
	return b
}

// Give registers what concrete receives for the needed name. value follows
// the same rules as Set: producer funcs run on every resolution, anything
// else is a constant.
func (b *ContextualBuilder) Give(value any) {
	b.give(producerFor(value))
}

// GiveValue is Give for values that must never be treated as producers.
//
//	c.When("uploads").Needs("storage.path").GiveValue("/tmp/uploads")
func (b *ContextualBuilder) GiveValue(value any) {
	b.give(constant(value))
}

func (b *ContextualBuilder) give(p Producer) {
	c := b.container
	c.mu.Lock()
	defer c.mu.Unlock()
	concrete := c.canonical(b.concrete)
	if _, ok := c.contextual[concrete]; !ok {
		c.contextual[concrete] = make(map[string]Producer)
	}
	c.contextual[concrete][b.needs] = p
}
