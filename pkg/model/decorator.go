package model

// Decorator adjusts a form after it has been decoded or edited and before it
// is persisted or rendered.
type Decorator interface {
	Decorate(*FormConfig) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*FormConfig) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(form *FormConfig) error {
	return fn(form)
}

// DeriveDecorator normalises every field; see FieldDefinition.Derive.
var DeriveDecorator = DecoratorFunc(func(form *FormConfig) error {
	*form = form.Derive()
	return nil
})

// MigrateLegacyDecorator rewrites legacy raw patterns as custom_regex rules.
var MigrateLegacyDecorator = DecoratorFunc(func(form *FormConfig) error {
	for i := range form.Fields {
		form.Fields[i] = form.Fields[i].MigrateLegacy()
	}
	return nil
})

// CheckDecorator rejects forms that fail FormConfig.Check.
var CheckDecorator = DecoratorFunc(func(form *FormConfig) error {
	return form.Check()
})

// Apply runs decorators in order, stopping at the first error.
func Apply(form *FormConfig, decorators ...Decorator) error {
	for _, d := range decorators {
		if d == nil {
			continue
		}
		if err := d.Decorate(form); err != nil {
			return err
		}
	}
	return nil
}
